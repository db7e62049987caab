package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfExtractor extracts text per page so chunks can cite page numbers.
type pdfExtractor struct{}

func (pdfExtractor) Extract(content []byte) ([]Segment, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var segments []Segment
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pageNum := i
		segments = append(segments, Segment{Page: &pageNum, Text: text})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: PDF has no text layer (scanned document?)", ErrNoText)
	}
	return segments, nil
}
