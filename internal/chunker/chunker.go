// Package chunker splits extracted text into overlapping character windows.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/extract"
)

// Window is one chunk-to-be: its text span, zero-based index (global across
// a document's segments), and the page its span starts in (nil if unknown).
type Window struct {
	Page    *int
	Index   int
	Content string
}

// Chunker produces overlapping fixed-size windows over extracted text.
// Identical input and constants always yield an identical window sequence.
type Chunker struct {
	chunkChars   int
	overlapChars int
}

// New creates a chunker with the given window size and overlap, both in
// characters. An overlap that is negative or not smaller than the window is
// a configuration error and is rejected here, at startup.
func New(chunkChars, overlapChars int) (*Chunker, error) {
	if chunkChars <= 0 {
		return nil, fmt.Errorf("chunker: window size must be positive, got %d", chunkChars)
	}
	if overlapChars < 0 || overlapChars >= chunkChars {
		return nil, fmt.Errorf("chunker: overlap %d must satisfy 0 <= overlap < window %d", overlapChars, chunkChars)
	}
	return &Chunker{chunkChars: chunkChars, overlapChars: overlapChars}, nil
}

// Chunk windows each segment independently (a window never spans a page
// boundary) and assigns one contiguous index sequence starting at 0 across
// all segments. Whitespace is normalized per segment before windowing.
// Empty input yields no windows: the caller still records the document,
// with zero chunks indexed.
func (c *Chunker) Chunk(segments []extract.Segment) []Window {
	var windows []Window
	index := 0
	for _, seg := range segments {
		text := []rune(Normalize(seg.Text))
		if len(text) == 0 {
			continue
		}
		start := 0
		for start < len(text) {
			end := start + c.chunkChars
			if end > len(text) {
				end = len(text)
			}
			windows = append(windows, Window{
				Page:    seg.Page,
				Index:   index,
				Content: string(text[start:end]),
			})
			index++
			if end >= len(text) {
				break
			}
			start = end - c.overlapChars
		}
	}
	return windows
}

// Normalize trims text and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
