// Package embedding provides text embedding with paired passage/query
// encoding modes, via a local ONNX model or an OpenAI-compatible endpoint.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbedding marks embedding failures: empty input text or an unavailable model.
var ErrEmbedding = errors.New("embedding failed")

// Prefixes are the paired encoding conventions of the embedding model family.
// Passage is prepended when embedding stored content, Query when embedding an
// incoming question. Both must come from the same family (E5 ships
// "passage: "/"query: ") or passage and query vectors stop being comparable —
// mixing degrades retrieval silently rather than erroring.
type Prefixes struct {
	Passage string
	Query   string
}

// Embedder produces dense vector embeddings. Passage embedding is batched;
// query embedding is a batch of one. All vectors an Embedder returns share
// the dimensionality reported by Dimensions.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
