package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/voyagen/m3ucatalog/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_records (
	key         TEXT PRIMARY KEY,
	payload     BLOB    NOT NULL,
	entry_count INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
)`

// SQLite implements Store on a local SQLite file. It is the default backend:
// a single-file durable cache next to the binary.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (creating if needed) the database at path and ensures the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir %s: %w", dir, err)
		}
	}

	// WAL + busy_timeout keep concurrent readers from seeing "database is locked".
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	var payload []byte
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM cache_records WHERE key = ?`, key,
	).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	rec, err := decodeRecord(key, payload)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = createdAt
	return rec, nil
}

func (s *SQLite) Put(ctx context.Context, rec *models.CacheRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite put %s: marshal: %w", rec.Key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_records (key, payload, entry_count, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   payload = excluded.payload, entry_count = excluded.entry_count, created_at = excluded.created_at`,
		rec.Key, payload, rec.Len(), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", rec.Key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}
