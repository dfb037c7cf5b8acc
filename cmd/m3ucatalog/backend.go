package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/config"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/store"
)

// backend bundles the catalog store and the optional Redis client.
type backend struct {
	store store.Store
	redis *cache.Redis // nil when REDIS_URL is not set
}

// Close releases the store and the Redis client. Safe to call twice.
func (b *backend) Close() {
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			logging.Warn("close store: %v", err)
		}
		b.store = nil
	}
	if b.redis != nil {
		_ = b.redis.Close()
		b.redis = nil
	}
}

// openBackend opens the configured cache backend. When Redis is configured
// in front of a durable backend, reads go through a CachedStore.
//
// An unavailable cache never stops the program: an unreachable Redis
// disables the lock, queue and front cache, and a durable backend that
// cannot be opened is replaced by an in-memory store.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}
	if cfg.RedisURL != "" {
		rds, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logging.Warn("redis unavailable, continuing without lock, refresh queue and front cache: %v", err)
		} else {
			b.redis = rds
			logging.Info("redis connected (lock, refresh queue enabled)")
		}
	} else {
		logging.Info("redis disabled (REDIS_URL not set)")
	}

	inner, err := openStore(ctx, cfg, b.redis)
	switch {
	case errors.Is(err, errUnknownBackend):
		b.Close()
		return nil, err
	case err != nil:
		logging.Warn("cache backend %s unavailable, keeping the catalog in memory: %v", cfg.CacheBackend, err)
		b.store = store.NewMemory()
		return b, nil
	}

	if b.redis != nil && cfg.CacheBackend != config.BackendRedis && cfg.CacheBackend != config.BackendMemory {
		b.store = store.NewCachedStore(inner, b.redis, 0)
	} else {
		b.store = inner
	}
	return b, nil
}

var errUnknownBackend = errors.New("unknown cache backend")

func connectRedis(ctx context.Context, rawURL string) (*cache.Redis, error) {
	rds, err := cache.New(rawURL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rds.Ping(pingCtx); err != nil {
		_ = rds.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rds, nil
}

// openStore opens the store named by cfg.CacheBackend. rds is nil when
// Redis is not available.
func openStore(ctx context.Context, cfg *config.Config, rds *cache.Redis) (store.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendSQLite:
		s, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logging.Info("cache backend: sqlite %s", s.Path())
		return s, nil
	case config.BackendPostgres:
		if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		logging.Info("cache backend: postgres")
		return pg, nil
	case config.BackendRedis:
		if rds == nil {
			return nil, errors.New("redis is not connected")
		}
		logging.Info("cache backend: redis")
		return store.NewRedisStore(rds, cfg.CacheTTL), nil
	case config.BackendMemory:
		logging.Info("cache backend: memory (catalog is lost on exit)")
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownBackend, cfg.CacheBackend)
}

// migrationsPath finds the migrations directory next to the working
// directory or the executable.
func migrationsPath() string {
	abs, err := filepath.Abs("migrations")
	if err != nil {
		abs = "migrations"
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return "file://" + abs
}
