package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/models"
)

// DefaultFrontTTL bounds how long a record stays in the Redis front.
const DefaultFrontTTL = 10 * time.Minute

// CachedStore wraps a durable Store with a Redis read-through layer.
// Reads are served from Redis when possible; Put and Delete go to the inner
// store first and then drop the Redis copy. Redis failures are logged and
// never fail the operation.
type CachedStore struct {
	inner Store
	cache *cache.Redis
	ttl   time.Duration
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultFrontTTL
	}
	return &CachedStore{inner: inner, cache: c, ttl: ttl}
}

func frontKey(key string) string {
	return cache.Key("front", key)
}

func (c *CachedStore) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	fk := frontKey(key)
	v, err := cache.Get[models.CacheRecord](ctx, c.cache, fk)
	if err == nil {
		if v.Key == "" {
			v.Key = key
		}
		if v.Categories == nil {
			v.Categories = map[string][]int{}
		}
		return &v, nil
	}
	if !cache.IsNil(err) {
		logging.Warn("cache: get %s: %v", fk, err)
	}

	rec, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, fk, rec, c.ttl); err != nil {
		logging.Warn("cache: set %s: %v", fk, err)
	}
	return rec, nil
}

func (c *CachedStore) Put(ctx context.Context, rec *models.CacheRecord) error {
	if err := c.inner.Put(ctx, rec); err != nil {
		return err
	}
	c.invalidate(ctx, rec.Key)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, key string) error {
	err := c.inner.Delete(ctx, key)
	c.invalidate(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Close closes the inner store. The Redis client is owned by the caller.
func (c *CachedStore) Close() error {
	return c.inner.Close()
}

// invalidate drops the Redis copy of key, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, key string) {
	if err := cache.Del(ctx, c.cache, frontKey(key)); err != nil {
		logging.Warn("cache: del %s: %v", frontKey(key), err)
	}
}
