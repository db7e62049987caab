// Package storage defines persistence for documents, chunks, and raw uploads.
package storage

import (
	"context"
	"errors"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
)

// ErrStore marks transactional persistence failures.
var ErrStore = errors.New("store error")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence plus vector search.
type Storage interface {
	// InsertDocument creates a document row and returns its id.
	InsertDocument(ctx context.Context, doc *models.Document) (int64, error)
	// InsertChunks inserts all chunks of one document as a single atomic
	// unit: either every row commits or none do. Returns the inserted count.
	InsertChunks(ctx context.Context, documentID int64, chunks []*models.Chunk) (int, error)
	// Search returns up to topK chunks whose owning document belongs to
	// collectionID, ordered by ascending cosine distance to queryEmbedding;
	// equal distances break ties by ascending chunk id. An unused collection
	// yields an empty result, not an error.
	Search(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.ScoredChunk, error)

	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	// DeleteDocument removes a document and, by explicit cascade, its chunks.
	DeleteDocument(ctx context.Context, id int64) error
	ListDocuments(ctx context.Context, collectionID string) ([]models.DocumentRef, error)
	ListCollections(ctx context.Context) ([]string, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
