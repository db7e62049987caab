// Package watcher auto-ingests files dropped into configured directories.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/ingest"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches drop directories and ingests matching files into one
// collection. Writes are debounced per path so a file still being copied is
// ingested once, after its last write settles. Only creates and writes
// trigger ingestion; removing a dropped file does not delete its document.
type Watcher struct {
	dirs         []string
	extensions   []string
	collectionID string
	ingestor     *ingest.Ingestor
	debounce     time.Duration
	logger       *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay before a written file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over dirs. extensions filters which files are
// ingested (empty = all); collectionID is the target collection.
func New(dirs, extensions []string, collectionID string, ingestor *ingest.Ingestor, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:         dirs,
		extensions:   extensions,
		collectionID: collectionID,
		ingestor:     ingestor,
		debounce:     defaultDebounce,
		logger:       zap.NewNop(),
		debounceMap:  make(map[string]*time.Timer),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing directories are created. Runs until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching drop directories",
		zap.Strings("directories", w.dirs),
		zap.String("collection_id", w.collectionID),
	)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		if w.matchExtension(ev.Name) {
			w.scheduleIngest(ctx, ev.Name)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(ev.Name)
	}
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingestPath(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// ingestPath ingests one dropped file. A filename already present in the
// collection is skipped, so restarts (which re-sync the drop directories) do
// not duplicate documents; re-ingesting an updated file requires deleting its
// document first.
func (w *Watcher) ingestPath(ctx context.Context, path string) {
	exists, err := w.ingestor.HasDocument(ctx, filepath.Base(path), w.collectionID)
	if err != nil {
		w.logger.Warn("auto-ingest lookup failed", zap.String("path", path), zap.Error(err))
		return
	}
	if exists {
		w.logger.Debug("skipping already-ingested file", zap.String("path", path))
		return
	}
	result, err := w.ingestor.IngestFile(ctx, path, w.collectionID)
	if err != nil {
		w.logger.Warn("auto-ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("auto-ingested dropped file",
		zap.String("path", path),
		zap.Int64("document_id", result.DocumentID),
		zap.Int("chunks_indexed", result.ChunksIndexed),
	)
}

// SyncExisting ingests files already present in the watched directories.
// Call after Start to pick up drops that happened while the server was down.
func (w *Watcher) SyncExisting(ctx context.Context) {
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logger.Warn("failed to read drop directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if w.matchExtension(path) {
				w.ingestPath(ctx, path)
			}
		}
	}
}

// Stop stops the watcher and cancels pending ingests.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
