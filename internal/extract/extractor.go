// Package extract provides text extraction from uploaded document formats.
//
// The capability set is closed: pdf, docx, and plain text (txt/md). Each
// format is a variant behind the Extractor interface; adding a format means
// adding a variant, not branching logic in callers.
package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when the declared file type is not in the
// capability set. Ingestion aborts before any storage write.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoText is returned when a well-typed file yields no extractable text
// (e.g. an image-only PDF). Distinguished from ErrUnsupportedFormat so the
// caller can suggest OCR.
var ErrNoText = errors.New("no extractable text")

// Segment is a span of extracted text. Page is nil for formats without page
// structure; for PDFs it is the 1-based page the text came from.
type Segment struct {
	Page *int
	Text string
}

// Extractor extracts text segments from raw file content, in source order.
// Extractors have no side effects beyond reading the input.
type Extractor interface {
	Extract(content []byte) ([]Segment, error)
}

// ForType returns the extractor for a declared type tag (pdf, docx, txt, md).
// Unknown tags return ErrUnsupportedFormat.
func ForType(declaredType string) (Extractor, error) {
	switch declaredType {
	case "pdf":
		return pdfExtractor{}, nil
	case "docx":
		return docxExtractor{}, nil
	case "txt", "md":
		return plainExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: pdf, docx, txt, md)", ErrUnsupportedFormat, declaredType)
	}
}

// SupportedTypes lists the declared type tags in the capability set.
func SupportedTypes() []string {
	return []string{"pdf", "docx", "txt", "md"}
}
