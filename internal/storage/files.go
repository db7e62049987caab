package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore keeps the raw bytes of ingested documents on disk so uploads can
// be inspected or re-ingested later. Names are prefixed with a UUID to avoid
// collisions between uploads of the same filename.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes content under a collision-free name derived from filename and
// returns the absolute path of the stored copy.
func (f *FileStore) Save(filename string, content []byte) (string, error) {
	name := uuid.New().String() + "_" + filepath.Base(filename)
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return path, nil
}

// Remove deletes a stored copy. A missing file is not an error; the database
// row is the source of truth and the copy may have been cleaned up manually.
func (f *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stored file: %w", err)
	}
	return nil
}
