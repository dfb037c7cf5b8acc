package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/metrics"
	"github.com/voyagen/m3ucatalog/internal/models"
)

// DefaultTTL is how long a cached catalog stays fresh.
const DefaultTTL = 24 * time.Hour

// CatalogCache is the time-limited catalog cache in front of a Store.
// It never returns backend errors: unavailable backends, corrupt or
// undecodable records all read as absent, and failed writes report false.
type CatalogCache struct {
	backend Store
	ttl     time.Duration
	now     func() time.Time
}

// NewCatalogCache returns a CatalogCache over backend. A ttl <= 0 selects DefaultTTL.
func NewCatalogCache(backend Store, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{backend: backend, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests to move past the TTL.
func (c *CatalogCache) WithClock(now func() time.Time) *CatalogCache {
	c.now = now
	return c
}

// TTL returns the freshness window.
func (c *CatalogCache) TTL() time.Duration { return c.ttl }

// Read returns the fresh record under key. Expired records are deleted on a
// best-effort basis and read as absent.
func (c *CatalogCache) Read(ctx context.Context, key string) (*models.CacheRecord, bool) {
	rec, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.CacheOpsTotal.WithLabelValues("read", "miss").Inc()
			return nil, false
		}
		metrics.CacheOpsTotal.WithLabelValues("read", "error").Inc()
		logging.Warn("cache: read %s: %v", key, err)
		return nil, false
	}

	if age := rec.Age(c.now()); age > c.ttl {
		metrics.CacheOpsTotal.WithLabelValues("read", "expired").Inc()
		logging.Debug("cache: %s expired (age %s > %s)", key, age.Round(time.Second), c.ttl)
		c.Delete(ctx, key)
		return nil, false
	}

	metrics.CacheOpsTotal.WithLabelValues("read", "hit").Inc()
	return rec, true
}

// Write stores catalog under key stamped with the current time, replacing any
// previous record. Failures are logged and reported as false.
func (c *CatalogCache) Write(ctx context.Context, key string, catalog *models.Catalog) bool {
	rec := models.NewCacheRecord(key, catalog, c.now())
	if err := c.backend.Put(ctx, rec); err != nil {
		metrics.CacheOpsTotal.WithLabelValues("write", "error").Inc()
		logging.Warn("cache: write %s: %v", key, err)
		return false
	}
	metrics.CacheOpsTotal.WithLabelValues("write", "ok").Inc()
	return true
}

// Delete removes the record under key, logging failures.
func (c *CatalogCache) Delete(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		metrics.CacheOpsTotal.WithLabelValues("delete", "error").Inc()
		logging.Warn("cache: delete %s: %v", key, err)
		return
	}
	metrics.CacheOpsTotal.WithLabelValues("delete", "ok").Inc()
}
