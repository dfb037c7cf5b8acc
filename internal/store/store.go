package store

import (
	"context"
	"errors"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("not found")

// Store defines persistence for catalog cache records.
type Store interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*models.CacheRecord, error)
	// Put inserts or replaces the record under rec.Key.
	Put(ctx context.Context, rec *models.CacheRecord) error
	// Delete removes the record under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying connection.
	Close() error
}
