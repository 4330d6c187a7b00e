package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend keeps each collection in <dir>/<collection>.json.
type FileBackend struct {
	dir string
}

// OpenFile creates the data directory if needed.
func OpenFile(dir string) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the file backing a collection.
func (b *FileBackend) Path(collection string) string {
	return filepath.Join(b.dir, collection+".json")
}

// Read implements Backend.
func (b *FileBackend) Read(_ context.Context, collection string) ([]Record, error) {
	data, err := os.ReadFile(b.Path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return decodeRecords(data)
}

// Write implements Backend. The new content is written to a temp file in
// the same directory and renamed over the old one.
func (b *FileBackend) Write(_ context.Context, collection string, records []Record) error {
	data, err := encodeRecords(records, true)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(b.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", collection, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, b.Path(collection)); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

// Exists implements Backend.
func (b *FileBackend) Exists(_ context.Context, collection string) (bool, error) {
	_, err := os.Stat(b.Path(collection))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	return nil
}
