package extract

import (
	"strings"
	"unicode/utf8"
)

// plainExtractor covers .txt and .md. Content is returned as-is after UTF-8
// validation; invalid sequences are replaced with the replacement character.
// An empty file is not an extraction failure: it yields no segments, and the
// document is still recorded with zero chunks.
type plainExtractor struct{}

func (plainExtractor) Extract(content []byte) ([]Segment, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text}}, nil
}
