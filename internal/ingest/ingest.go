// Package ingest runs the document indexing pipeline: extract, chunk, embed, persist.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/chunker"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/embedding"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/extract"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/storage"
)

// Ingestor turns an uploaded file into a document row plus embedded chunks.
// All fallible work (extraction, chunking, embedding) happens before the
// first storage write, so a failed ingest leaves no partial state behind.
type Ingestor struct {
	store   storage.Storage
	files   *storage.FileStore
	embed   embedding.Embedder
	chunker *chunker.Chunker
	logger  *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithFileStore enables raw upload retention. Without it, only the extracted
// chunks are kept.
func WithFileStore(files *storage.FileStore) Option {
	return func(i *Ingestor) {
		i.files = files
	}
}

// New creates an Ingestor.
func New(store storage.Storage, embed embedding.Embedder, ch *chunker.Chunker, opts ...Option) *Ingestor {
	i := &Ingestor{
		store:   store,
		embed:   embed,
		chunker: ch,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest indexes one file into a collection. declaredType is the client's
// type tag (pdf, docx, txt, md); content is the raw file bytes. A file whose
// extraction succeeds but yields no text is still recorded, with zero chunks.
func (i *Ingestor) Ingest(ctx context.Context, filename, declaredType string, content []byte, collectionID string) (*models.IngestResult, error) {
	extractor, err := extract.ForType(declaredType)
	if err != nil {
		return nil, err
	}
	segments, err := extractor.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	windows := i.chunker.Chunk(segments)

	chunks := make([]*models.Chunk, len(windows))
	if len(windows) > 0 {
		texts := make([]string, len(windows))
		for n, w := range windows {
			texts[n] = w.Content
		}
		vectors, err := i.embed.EmbedPassages(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", filename, err)
		}
		for n, w := range windows {
			chunks[n] = &models.Chunk{
				ChunkIndex: w.Index,
				Page:       w.Page,
				Content:    w.Content,
				Embedding:  vectors[n],
			}
		}
	}

	var storagePath string
	if i.files != nil {
		storagePath, err = i.files.Save(filename, content)
		if err != nil {
			return nil, err
		}
	}

	doc := &models.Document{
		Filename:     filename,
		CollectionID: collectionID,
		StoragePath:  storagePath,
	}
	docID, err := i.store.InsertDocument(ctx, doc)
	if err != nil {
		i.cleanupFile(storagePath)
		return nil, err
	}

	indexed := 0
	if len(chunks) > 0 {
		indexed, err = i.store.InsertChunks(ctx, docID, chunks)
		if err != nil {
			// Chunk insert is atomic, so compensating for the document row
			// restores the pre-ingest state.
			if delErr := i.store.DeleteDocument(ctx, docID); delErr != nil {
				i.logger.Error("failed to roll back document after chunk insert failure",
					zap.Int64("document_id", docID), zap.Error(delErr))
			}
			i.cleanupFile(storagePath)
			return nil, err
		}
	}

	i.logger.Info("document ingested",
		zap.Int64("document_id", docID),
		zap.String("filename", filename),
		zap.String("collection_id", collectionID),
		zap.Int("chunks_indexed", indexed),
	)

	return &models.IngestResult{
		DocumentID:    docID,
		Filename:      filename,
		CollectionID:  collectionID,
		ChunksIndexed: indexed,
	}, nil
}

// IngestFile reads a file from disk and ingests it, deriving the type tag
// from the extension. Used by the watch-directory loop and the CLI.
func (i *Ingestor) IngestFile(ctx context.Context, path, collectionID string) (*models.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return i.Ingest(ctx, filepath.Base(path), TypeFromFilename(path), content, collectionID)
}

// HasDocument reports whether a document named filename already exists in
// collectionID. The watcher uses this to keep drop-directory ingestion
// idempotent: a file that was already indexed is not ingested again.
func (i *Ingestor) HasDocument(ctx context.Context, filename, collectionID string) (bool, error) {
	docs, err := i.store.ListDocuments(ctx, collectionID)
	if err != nil {
		return false, err
	}
	for _, d := range docs {
		if d.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a document, its chunks, and its stored raw copy.
func (i *Ingestor) Delete(ctx context.Context, documentID int64) error {
	doc, err := i.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := i.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	i.cleanupFile(doc.StoragePath)
	i.logger.Info("document deleted",
		zap.Int64("document_id", documentID),
		zap.String("filename", doc.Filename),
	)
	return nil
}

func (i *Ingestor) cleanupFile(path string) {
	if i.files == nil || path == "" {
		return
	}
	if err := i.files.Remove(path); err != nil {
		i.logger.Warn("failed to remove stored file", zap.String("path", path), zap.Error(err))
	}
}

// TypeFromFilename maps a filename extension to a declared type tag. Unknown
// extensions map to an empty tag, which extraction rejects as unsupported.
func TypeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".txt":
		return "txt"
	case ".md", ".markdown":
		return "md"
	default:
		return ""
	}
}
