package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// MockEmbedder is a deterministic embedder for tests and development. It
// derives a unit vector from the prefixed text's hash, so the same text in
// the same mode always gets the same embedding, and passage/query modes
// differ unless the prefixes are equal.
type MockEmbedder struct {
	dimensions int
	prefixes   Prefixes
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int, prefixes Prefixes) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, prefixes: prefixes}
}

// EmbedPassages embeds each text with the passage convention.
func (e *MockEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.embed(text, e.prefixes.Passage)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// EmbedQuery embeds text with the query convention.
func (e *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text, e.prefixes.Query)
}

func (e *MockEmbedder) embed(text, prefix string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbedding)
	}
	h := HashString(prefix + text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	// Normalize to unit length for cosine similarity
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
