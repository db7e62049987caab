package answer

import (
	"context"
	"strings"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/config"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
)

// Extractive answers by quoting the best-ranked chunks directly, never
// generating text of its own. It is the default composer: no external model,
// no hallucination surface.
type Extractive struct {
	maxContextChunks int
	maxAnswerChars   int
	snippetChars     int
	maxDistance      float64
}

// NewExtractive creates an extractive composer from answer settings.
func NewExtractive(cfg *config.AnswerConfig) *Extractive {
	return &Extractive{
		maxContextChunks: cfg.MaxContextChunks,
		maxAnswerChars:   cfg.MaxAnswerChars,
		snippetChars:     cfg.SnippetChars,
		maxDistance:      cfg.MaxDistance,
	}
}

// Compose stitches the top chunks into the answer. When retrieval is empty,
// or the best chunk is farther than the distance gate allows, it returns the
// fixed no-context answer with no citations.
func (e *Extractive) Compose(_ context.Context, _ string, retrieved []models.ScoredChunk) (string, []models.Citation, error) {
	if len(retrieved) == 0 {
		return NoContextAnswer, []models.Citation{}, nil
	}
	if e.maxDistance >= 0 && retrieved[0].Distance > e.maxDistance {
		return NoContextAnswer, []models.Citation{}, nil
	}

	limit := e.maxContextChunks
	if limit < 1 {
		limit = 1
	}
	if limit > len(retrieved) {
		limit = len(retrieved)
	}
	parts := make([]string, 0, limit)
	for _, sc := range retrieved[:limit] {
		parts = append(parts, sc.Chunk.Content)
	}
	text := truncateRunes(strings.Join(parts, "\n\n"), e.maxAnswerChars)

	return text, citationsFor(retrieved, e.snippetChars), nil
}
