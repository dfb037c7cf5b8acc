package store

import (
	"context"
	"fmt"
	"time"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/models"
)

// RedisStore implements Store on Redis. Records live under
// "m3ucatalog:catalog:<key>" as JSON; a non-zero ttl lets Redis expire them
// on its own in addition to the CatalogCache age check.
type RedisStore struct {
	r   *cache.Redis
	ttl time.Duration
}

// NewRedisStore returns a RedisStore writing records with the given expiry (0 = none).
func NewRedisStore(r *cache.Redis, ttl time.Duration) *RedisStore {
	return &RedisStore{r: r, ttl: ttl}
}

func recordKey(key string) string {
	return cache.Key("catalog", key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	rec, err := cache.Get[models.CacheRecord](ctx, s.r, recordKey(key))
	if err != nil {
		if cache.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if rec.Key == "" {
		rec.Key = key
	}
	if rec.Categories == nil {
		rec.Categories = map[string][]int{}
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *models.CacheRecord) error {
	if err := cache.Set(ctx, s.r, recordKey(rec.Key), rec, s.ttl); err != nil {
		return fmt.Errorf("redis put %s: %w", rec.Key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := cache.Del(ctx, s.r, recordKey(key)); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
