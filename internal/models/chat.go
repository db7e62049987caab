package models

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCollectionID is used when a request does not name a collection.
const DefaultCollectionID = "default"

// DefaultTopK is the number of chunks retrieved when a chat request does not set top_k.
const DefaultTopK = 4

// ErrInvalidRequest marks request validation failures (empty question, top_k < 1).
var ErrInvalidRequest = errors.New("invalid request")

// ChatRequest is the chat endpoint input. TopK is a pointer so that an
// omitted field (defaults to 4) can be told apart from an explicit 0.
type ChatRequest struct {
	Question     string `json:"question"`
	CollectionID string `json:"collection_id,omitempty"`
	TopK         *int   `json:"top_k,omitempty"`
}

// Validate checks the request and fills defaults in place. The question must
// be non-empty and top_k, when set, must be at least 1.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidRequest)
	}
	if r.CollectionID == "" {
		r.CollectionID = DefaultCollectionID
	}
	if r.TopK == nil {
		k := DefaultTopK
		r.TopK = &k
	}
	if *r.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidRequest, *r.TopK)
	}
	return nil
}

// Citation is a structured reference back to the chunk grounding part of an answer.
type Citation struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Page       *int    `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Distance   float64 `json:"distance"`
}

// ChatResponse is the chat endpoint output. Citations is always non-nil.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// IngestResult is the ingestion endpoint output.
type IngestResult struct {
	DocumentID   int64  `json:"document_id"`
	Filename     string `json:"filename"`
	CollectionID string `json:"collection_id"`
	ChunksIndexed int   `json:"chunks_indexed"`
}
