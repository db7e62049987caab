package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
)

const testDims = 4

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), testDims)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestDocument(t *testing.T, s *SQLiteStorage, filename, collection string) int64 {
	t.Helper()
	id, err := s.InsertDocument(context.Background(), &models.Document{
		Filename:     filename,
		CollectionID: collection,
	})
	if err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	return id
}

func vec(x float32) []float32 {
	return []float32{x, 1, 0, 0}
}

func TestInsertDocument(t *testing.T) {
	s := newTestStorage(t)
	id := insertTestDocument(t, s, "guide.pdf", "default")
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	doc, err := s.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if doc.Filename != "guide.pdf" || doc.CollectionID != "default" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestGetDocument_notFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetDocument(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertChunks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	docID := insertTestDocument(t, s, "a.txt", "default")

	page := 1
	chunks := []*models.Chunk{
		{ChunkIndex: 0, Page: &page, Content: "first", Embedding: vec(0.1)},
		{ChunkIndex: 1, Content: "second", Embedding: vec(0.2)},
	}
	n, err := s.InsertChunks(ctx, docID, chunks)
	if err != nil {
		t.Fatalf("failed to insert chunks: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 inserted, got %d", n)
	}
	if count, _ := s.CountChunks(ctx); count != 2 {
		t.Errorf("expected 2 chunks in store, got %d", count)
	}
	if chunks[0].ID == 0 || chunks[1].ID == 0 {
		t.Error("chunk ids should be populated after insert")
	}
}

func TestInsertChunks_dimensionMismatchIsAtomic(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	docID := insertTestDocument(t, s, "a.txt", "default")

	chunks := []*models.Chunk{
		{ChunkIndex: 0, Content: "ok", Embedding: vec(0.1)},
		{ChunkIndex: 1, Content: "bad", Embedding: []float32{1, 2}},
	}
	if _, err := s.InsertChunks(ctx, docID, chunks); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if count, _ := s.CountChunks(ctx); count != 0 {
		t.Errorf("no chunks should persist after failed insert, got %d", count)
	}
}

func TestSearch_ordering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	docID := insertTestDocument(t, s, "a.txt", "default")

	// Query points along the x axis; chunks get decreasingly similar.
	chunks := []*models.Chunk{
		{ChunkIndex: 0, Content: "far", Embedding: []float32{0, 1, 0, 0}},
		{ChunkIndex: 1, Content: "near", Embedding: []float32{1, 0.1, 0, 0}},
		{ChunkIndex: 2, Content: "mid", Embedding: []float32{1, 1, 0, 0}},
	}
	if _, err := s.InsertChunks(ctx, docID, chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "default", []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"near", "mid", "far"}
	for i, w := range want {
		if results[i].Chunk.Content != w {
			t.Errorf("result %d: got %q, want %q", i, results[i].Chunk.Content, w)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("distances not ascending at %d", i)
		}
	}
}

func TestSearch_tieBreakByChunkID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	docID := insertTestDocument(t, s, "a.txt", "default")

	// Identical embeddings: equal distance, order must follow insertion ids.
	chunks := []*models.Chunk{
		{ChunkIndex: 0, Content: "one", Embedding: vec(0.5)},
		{ChunkIndex: 1, Content: "two", Embedding: vec(0.5)},
		{ChunkIndex: 2, Content: "three", Embedding: vec(0.5)},
	}
	if _, err := s.InsertChunks(ctx, docID, chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "default", vec(0.5), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Chunk.ID <= results[i-1].Chunk.ID {
			t.Errorf("equal-distance results not ordered by chunk id: %d then %d",
				results[i-1].Chunk.ID, results[i].Chunk.ID)
		}
	}
}

func TestSearch_topKBounds(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	docID := insertTestDocument(t, s, "a.txt", "default")
	chunks := []*models.Chunk{
		{ChunkIndex: 0, Content: "a", Embedding: vec(0.1)},
		{ChunkIndex: 1, Content: "b", Embedding: vec(0.2)},
		{ChunkIndex: 2, Content: "c", Embedding: vec(0.3)},
	}
	if _, err := s.InsertChunks(ctx, docID, chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "default", vec(0.1), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected topK to bound results to 2, got %d", len(results))
	}

	results, err = s.Search(ctx, "default", vec(0.1), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("topK above row count should return all 3, got %d", len(results))
	}
}

func TestSearch_collectionIsolation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	docA := insertTestDocument(t, s, "a.txt", "alpha")
	docB := insertTestDocument(t, s, "b.txt", "beta")
	if _, err := s.InsertChunks(ctx, docA, []*models.Chunk{{Content: "in alpha", Embedding: vec(0.1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertChunks(ctx, docB, []*models.Chunk{{Content: "in beta", Embedding: vec(0.1)}}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "alpha", vec(0.1), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "in alpha" {
		t.Errorf("search leaked across collections: %+v", results)
	}

	empty, err := s.Search(ctx, "nonexistent", vec(0.1), 10)
	if err != nil {
		t.Fatalf("unknown collection should not error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown collection should be empty, got %d results", len(empty))
	}
}

func TestDeleteDocument_cascades(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	keepID := insertTestDocument(t, s, "keep.txt", "default")
	dropID := insertTestDocument(t, s, "drop.txt", "default")
	if _, err := s.InsertChunks(ctx, keepID, []*models.Chunk{{Content: "keep", Embedding: vec(0.1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertChunks(ctx, dropID, []*models.Chunk{
		{ChunkIndex: 0, Content: "drop 0", Embedding: vec(0.2)},
		{ChunkIndex: 1, Content: "drop 1", Embedding: vec(0.3)},
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDocument(ctx, dropID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetDocument(ctx, dropID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document should be gone, got %v", err)
	}
	if count, _ := s.CountChunks(ctx); count != 1 {
		t.Errorf("expected only the kept chunk to survive, got %d", count)
	}

	results, err := s.Search(ctx, "default", vec(0.1), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "keep" {
		t.Errorf("deleted chunks still searchable: %+v", results)
	}
}

func TestDeleteDocument_notFound(t *testing.T) {
	s := newTestStorage(t)
	if err := s.DeleteDocument(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocumentsAndCollections(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	insertTestDocument(t, s, "first.txt", "alpha")
	insertTestDocument(t, s, "second.txt", "alpha")
	insertTestDocument(t, s, "other.txt", "beta")

	docs, err := s.ListDocuments(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents in alpha, got %d", len(docs))
	}

	empty, err := s.ListDocuments(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown collection should list no documents, got %d", len(empty))
	}

	collections, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(collections) != 2 {
		t.Errorf("expected 2 collections, got %v", collections)
	}
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	p1, err := fs.Save("report.pdf", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := fs.Save("report.pdf", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Error("same filename should not collide")
	}

	if err := fs.Remove(p1); err != nil {
		t.Errorf("remove failed: %v", err)
	}
	if err := fs.Remove(p1); err != nil {
		t.Errorf("double remove should be a no-op, got %v", err)
	}
	if err := fs.Remove(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}
