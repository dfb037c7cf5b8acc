package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLocked means another process is ingesting the same catalog.
var ErrLocked = errors.New("ingestion lock is held")

// Deletes the lock only while it still carries our token, so a lock that
// expired and was taken over by another process is left alone.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// LockKey is the ingestion lock for the catalog cached under key.
func LockKey(key string) string {
	return Key("lock", key)
}

// TryLock takes the lock at key for at most ttl, or returns ErrLocked.
// The returned unlock must be called once the ingestion ends; it runs on
// a background context so a cancelled load still releases the lock.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		_ = r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

// IsLocked reports whether any process holds the lock at key.
// Redis errors read as unlocked.
func IsLocked(ctx context.Context, r *Redis, key string) bool {
	n, err := r.client.Exists(ctx, key).Result()
	return err == nil && n > 0
}
