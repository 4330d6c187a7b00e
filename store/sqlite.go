package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteDriver is the database/sql driver registered by modernc.org/sqlite.
const sqliteDriver = "sqlite"

// SQLiteBackend keeps each collection as one row of the collections table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer connection avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

// Read implements Backend.
func (b *SQLiteBackend) Read(ctx context.Context, collection string) ([]Record, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	return decodeRecords([]byte(data))
}

// Write implements Backend.
func (b *SQLiteBackend) Write(ctx context.Context, collection string, records []Record) error {
	data, err := encodeRecords(records, false)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	const q = `INSERT INTO collections(name, data, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := b.db.ExecContext(ctx, q, collection, string(data), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Exists implements Backend.
func (b *SQLiteBackend) Exists(ctx context.Context, collection string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM collections WHERE name = ?`, collection).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count %s: %w", collection, err)
	}
	return n > 0, nil
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
