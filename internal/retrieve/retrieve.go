// Package retrieve answers "which chunks are closest to this question".
package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/embedding"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
	"github.com/tranhohoangvu/rag-kb-chatbot/pkg/utils"
)

// Retriever embeds a question in query mode and runs vector search over one
// collection. An empty result set is a valid outcome, not an error.
type Retriever struct {
	store  storage.Storage
	embed  embedding.Embedder
	logger *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// New creates a Retriever.
func New(store storage.Storage, embed embedding.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		store:  store,
		embed:  embed,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to topK chunks from collectionID nearest to question,
// ascending by cosine distance. topK below 1 is a request error.
func (r *Retriever) Retrieve(ctx context.Context, question, collectionID string, topK int) ([]models.ScoredChunk, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be at least 1, got %d", models.ErrInvalidRequest, topK)
	}

	queryVec, err := r.embed.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, collectionID, queryVec, topK)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieved chunks",
		zap.String("question", utils.Truncate(question, 120)),
		zap.String("collection_id", collectionID),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
	)
	return results, nil
}
