// SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tranhohoangvu/rag-kb-chatbot/internal/models"
	"github.com/tranhohoangvu/rag-kb-chatbot/internal/vector"
)

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs; similarity search is an exact linear scan over
// the queried collection, which is correct at any scale (an ANN index would
// only change performance, never ordering or top-k semantics).
type SQLiteStorage struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. dimensions is the
// deployment-wide embedding dimensionality; rows that do not match it are a
// configuration error surfaced at read time.
func NewSQLiteStorage(dbPath string, dimensions int) (*SQLiteStorage, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", ErrStore, dimensions)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		collection_id TEXT NOT NULL,
		storage_path TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection_id, created_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES documents(id),
		chunk_index INTEGER NOT NULL,
		page INTEGER,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON chunks(document_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertDocument inserts a document row and returns its generated id.
func (s *SQLiteStorage) InsertDocument(ctx context.Context, doc *models.Document) (int64, error) {
	doc.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (filename, collection_id, storage_path, created_at)
		 VALUES (?, ?, ?, ?)`,
		doc.Filename, doc.CollectionID, doc.StoragePath, doc.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert document: %v", ErrStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: insert document id: %v", ErrStore, err)
	}
	doc.ID = id
	return id, nil
}

// InsertChunks inserts all chunks for one document in a single transaction.
// A failure rolls back every row, so a document never ends up with a partial
// chunk set. Embedding dimensionality is checked before any write.
func (s *SQLiteStorage) InsertChunks(ctx context.Context, documentID int64, chunks []*models.Chunk) (int, error) {
	for i, ch := range chunks {
		if len(ch.Embedding) != s.dimensions {
			return 0, fmt.Errorf("%w: chunk %d embedding has %d dimensions, store expects %d",
				ErrStore, i, len(ch.Embedding), s.dimensions)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", ErrStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, page, content, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %v", ErrStore, err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, ch := range chunks {
		ch.DocumentID = documentID
		ch.CreatedAt = now
		res, err := stmt.ExecContext(ctx, documentID, ch.ChunkIndex, ch.Page, ch.Content, vector.Encode(ch.Embedding), now)
		if err != nil {
			return 0, fmt.Errorf("%w: insert chunk %d: %v", ErrStore, ch.ChunkIndex, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			ch.ID = id
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrStore, err)
	}
	return len(chunks), nil
}

// Search scans the collection's chunks and returns the topK nearest by
// cosine distance, ties broken by ascending chunk id.
func (s *SQLiteStorage) Search(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.ScoredChunk, error) {
	if len(queryEmbedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, store expects %d",
			ErrStore, len(queryEmbedding), s.dimensions)
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.chunk_index, c.page, c.content, c.embedding, c.created_at, d.filename
		 FROM chunks c JOIN documents d ON d.id = c.document_id
		 WHERE d.collection_id = ?`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStore, err)
	}
	defer rows.Close()

	var scored []models.ScoredChunk
	for rows.Next() {
		var ch models.Chunk
		var blob []byte
		var filename string
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Page, &ch.Content, &blob, &ch.CreatedAt, &filename); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", ErrStore, err)
		}
		emb, err := vector.Decode(blob, s.dimensions)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrStore, ch.ID, err)
		}
		ch.Embedding = emb
		scored = append(scored, models.ScoredChunk{
			Chunk:    &ch,
			Filename: filename,
			Distance: vector.CosineDistance(queryEmbedding, emb),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search rows: %v", ErrStore, err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// GetDocument returns a document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	var storagePath sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, collection_id, storage_path, created_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.CollectionID, &storagePath, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", ErrStore, err)
	}
	doc.StoragePath = storagePath.String
	return &doc, nil
}

// DeleteDocument removes a document and its chunks in one transaction.
// The cascade is explicit: chunks first, then the document row.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", ErrStore, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", ErrStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStore, err)
	}
	return nil
}

// ListDocuments returns {id, filename} pairs for a collection, most recent first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, collectionID string) ([]models.DocumentRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename FROM documents WHERE collection_id = ? ORDER BY created_at DESC, id DESC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", ErrStore, err)
	}
	defer rows.Close()

	refs := make([]models.DocumentRef, 0)
	for rows.Next() {
		var ref models.DocumentRef
		if err := rows.Scan(&ref.ID, &ref.Filename); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", ErrStore, err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListCollections returns the distinct collection ids, most recently used first.
func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection_id FROM documents GROUP BY collection_id ORDER BY MAX(created_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", ErrStore, err)
	}
	defer rows.Close()

	collections := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%w: scan collection: %v", ErrStore, err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
