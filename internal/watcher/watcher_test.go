package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/chunker"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/embedding"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/ingest"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
)

const testDims = 8

func newTestIngestor(t *testing.T) (*ingest.Ingestor, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), testDims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	ch, err := chunker.New(200, 40)
	if err != nil {
		t.Fatal(err)
	}
	embed := embedding.NewMockEmbedder(testDims, embedding.Prefixes{Passage: "passage: ", Query: "query: "})
	return ingest.New(store, embed, ch), store
}

func waitForDocuments(t *testing.T, store *storage.SQLiteStorage, want int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if count, _ := store.CountDocuments(context.Background()); count >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	count, _ := store.CountDocuments(context.Background())
	t.Fatalf("expected %d documents, got %d after %v", want, count, timeout)
}

func TestWatcher_ingestsDroppedFile(t *testing.T) {
	ing, store := newTestIngestor(t)
	dir := t.TempDir()

	w := New([]string{dir}, []string{".txt"}, "drops", ing, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("dropped content"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForDocuments(t, store, 1, 3*time.Second)

	docs, err := store.ListDocuments(context.Background(), "drops")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Filename != "note.txt" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestWatcher_ignoresOtherExtensions(t *testing.T) {
	ing, store := newTestIngestor(t)
	dir := t.TempDir()

	w := New([]string{dir}, []string{".txt"}, "drops", ing, WithDebounce(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "photo.png"), []byte{0x89}, 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if count, _ := store.CountDocuments(context.Background()); count != 0 {
		t.Errorf("non-matching extension should be ignored, got %d documents", count)
	}
}

func TestWatcher_syncExisting(t *testing.T) {
	ing, store := newTestIngestor(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already.md"), []byte("# was here first"), 0644); err != nil {
		t.Fatal(err)
	}

	w := New([]string{dir}, []string{".md"}, "drops", ing)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting(ctx)
	if count, _ := store.CountDocuments(context.Background()); count != 1 {
		t.Errorf("existing file should be ingested, got %d documents", count)
	}
}

func TestWatcher_syncExistingIsIdempotent(t *testing.T) {
	ing, store := newTestIngestor(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "kept.txt"), []byte("still in the drop dir"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two starts over the same directory model a server restart with the
	// dropped file still present; the second sync must not duplicate it.
	for i := 0; i < 2; i++ {
		w := New([]string{dir}, []string{".txt"}, "drops", ing)
		if err := w.Start(ctx); err != nil {
			t.Fatal(err)
		}
		w.SyncExisting(ctx)
		w.Stop()
	}

	if count, _ := store.CountDocuments(context.Background()); count != 1 {
		t.Errorf("re-sync duplicated the document, got %d rows", count)
	}
	if count, _ := store.CountChunks(context.Background()); count != 1 {
		t.Errorf("re-sync duplicated chunks, got %d rows", count)
	}
}

func TestWatcher_createsMissingDirectory(t *testing.T) {
	ing, _ := newTestIngestor(t)
	dir := filepath.Join(t.TempDir(), "not", "yet", "there")

	w := New([]string{dir}, nil, "drops", ing)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("missing directory should be created, got %v", err)
	}
	w.Stop()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestMatchExtension(t *testing.T) {
	w := New(nil, []string{".txt", "md"}, "c", nil)
	cases := map[string]bool{
		"a.txt": true,
		"A.TXT": true,
		"b.md":  true,
		"c.pdf": false,
		"noext": false,
	}
	for path, want := range cases {
		if got := w.matchExtension(path); got != want {
			t.Errorf("matchExtension(%q) = %v, want %v", path, got, want)
		}
	}

	all := New(nil, nil, "c", nil)
	if !all.matchExtension("anything.bin") {
		t.Error("empty extension list should match everything")
	}
}
