// Package answer turns retrieved chunks into a grounded response.
package answer

import (
	"context"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
)

// NoContextAnswer is returned verbatim when nothing relevant was retrieved.
const NoContextAnswer = "I could not find relevant information in the knowledge base to answer your question."

// Composer produces an answer plus citations from retrieved chunks, ordered
// best-first. Implementations must not invent content beyond the chunks.
type Composer interface {
	Compose(ctx context.Context, question string, retrieved []models.ScoredChunk) (string, []models.Citation, error)
}

func citationsFor(retrieved []models.ScoredChunk, snippetChars int) []models.Citation {
	citations := make([]models.Citation, len(retrieved))
	for i, sc := range retrieved {
		citations[i] = models.Citation{
			ChunkID:    sc.Chunk.ID,
			DocumentID: sc.Chunk.DocumentID,
			Filename:   sc.Filename,
			Page:       sc.Chunk.Page,
			ChunkIndex: sc.Chunk.ChunkIndex,
			Snippet:    truncateRunes(sc.Chunk.Content, snippetChars),
			Distance:   sc.Distance,
		}
	}
	return citations
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
