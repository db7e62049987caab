// Package models defines core data structures for documents, chunks, and chat exchanges.
package models

import "time"

// Document is one ingested file. Documents are append-only: created on
// successful ingestion, never mutated, removed only by an explicit delete.
type Document struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	CollectionID string    `json:"collection_id"`
	StoragePath  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentRef is the enumeration shape for listing documents in a collection.
type DocumentRef struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// Chunk is one text window of a document. ChunkIndex is zero-based and
// contiguous within a document. Page is nil for formats without page structure.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Page       *int      `json:"page"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredChunk is a retrieval hit: a chunk, its owning document's filename,
// and its cosine distance to the query (lower is more similar).
type ScoredChunk struct {
	Chunk    *Chunk  `json:"chunk"`
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
}
