package retrieve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/embedding"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
)

const testDims = 8

func newTestRetriever(t *testing.T) (*Retriever, *storage.SQLiteStorage, embedding.Embedder) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), testDims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	embed := embedding.NewMockEmbedder(testDims, embedding.Prefixes{Passage: "passage: ", Query: "query: "})
	return New(store, embed), store, embed
}

func seedChunks(t *testing.T, store *storage.SQLiteStorage, embed embedding.Embedder, collection string, texts []string) {
	t.Helper()
	ctx := context.Background()
	docID, err := store.InsertDocument(ctx, &models.Document{Filename: "seed.txt", CollectionID: collection})
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := embed.EmbedPassages(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &models.Chunk{ChunkIndex: i, Content: text, Embedding: vectors[i]}
	}
	if _, err := store.InsertChunks(ctx, docID, chunks); err != nil {
		t.Fatal(err)
	}
}

func TestRetrieve_exactMatchRanksFirst(t *testing.T) {
	r, store, embed := newTestRetriever(t)
	seedChunks(t, store, embed, "default", []string{"alpha topic", "beta topic", "gamma topic"})

	results, err := r.Retrieve(context.Background(), "beta topic", "default", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Mock embeddings are deterministic per text, so the identical passage is
	// nearest to the query embedding of the same words.
	if results[0].Chunk.Content != "beta topic" {
		t.Errorf("expected exact match first, got %q", results[0].Chunk.Content)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("distances not ascending at %d", i)
		}
	}
}

func TestRetrieve_topKValidation(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	for _, k := range []int{0, -1} {
		_, err := r.Retrieve(context.Background(), "q", "default", k)
		if !errors.Is(err, models.ErrInvalidRequest) {
			t.Errorf("top_k=%d: expected ErrInvalidRequest, got %v", k, err)
		}
	}
}

func TestRetrieve_emptyCollection(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	results, err := r.Retrieve(context.Background(), "anything", "empty", 4)
	if err != nil {
		t.Fatalf("empty collection must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieve_boundsToStoreSize(t *testing.T) {
	r, store, embed := newTestRetriever(t)
	seedChunks(t, store, embed, "default", []string{"only one"})

	results, err := r.Retrieve(context.Background(), "query", "default", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result when store holds 1 chunk, got %d", len(results))
	}
}
