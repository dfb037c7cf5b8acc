package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/m3ucatalog/internal/models"
)

// Postgres implements Store using PostgreSQL (table cache_records, see migrations/).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Get returns the record stored under key.
func (p *Postgres) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	var payload []byte
	var createdAt time.Time
	err := p.pool.QueryRow(ctx,
		`SELECT payload, created_at FROM cache_records WHERE key = $1`, key,
	).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("Get %s: %w", key, err)
	}
	rec, err := decodeRecord(key, payload)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = createdAt.UnixMilli()
	return rec, nil
}

// Put upserts the record; the previous snapshot under the key is replaced.
func (p *Postgres) Put(ctx context.Context, rec *models.CacheRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("Put %s: marshal: %w", rec.Key, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO cache_records (key, payload, entry_count, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		   payload = EXCLUDED.payload, entry_count = EXCLUDED.entry_count, created_at = EXCLUDED.created_at`,
		rec.Key, payload, rec.Len(), rec.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("Put %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record under key.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM cache_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("Delete %s: %w", key, err)
	}
	return nil
}
