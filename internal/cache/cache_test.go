package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	r := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestKey(t *testing.T) {
	if got := Key("catalog", "playlist"); got != "m3ucatalog:catalog:playlist" {
		t.Errorf("Key = %q", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := Set(ctx, r, "k", payload{Name: "x", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	got, err := Get[payload](ctx, r, "k")
	if err != nil || got.Name != "x" || got.Count != 3 {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := Del(ctx, r, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := Get[payload](ctx, r, "k"); !IsNil(err) {
		t.Errorf("Get after Del err = %v, want redis.Nil", err)
	}
	if err := Del(ctx, r); err != nil {
		t.Errorf("Del with no keys: %v", err)
	}
}

func TestGetCorruptValue(t *testing.T) {
	r, mr := newTestRedis(t)
	_ = mr.Set("bad", "{not json")
	if _, err := Get[map[string]int](context.Background(), r, "bad"); err == nil || IsNil(err) {
		t.Errorf("err = %v, want unmarshal error", err)
	}
}

func TestTryLock(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()
	key := LockKey("playlist")
	if key != "m3ucatalog:lock:playlist" {
		t.Fatalf("LockKey = %q", key)
	}

	unlock, err := TryLock(ctx, r, key, time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !IsLocked(ctx, r, key) {
		t.Fatal("lock not visible")
	}
	if _, err := TryLock(ctx, r, key, time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("second TryLock err = %v, want ErrLocked", err)
	}

	unlock()
	if IsLocked(ctx, r, key) {
		t.Fatal("lock still held after unlock")
	}
	unlock2, err := TryLock(ctx, r, key, time.Minute)
	if err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
	unlock2()
}

func TestUnlockDoesNotReleaseForeignLock(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	key := Key("lock", "x")

	unlock, err := TryLock(ctx, r, key, time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	// Simulate expiry and takeover by another holder.
	_ = mr.Set(key, "someone-else")
	unlock()
	if v, _ := mr.Get(key); v != "someone-else" {
		t.Errorf("foreign lock released, value = %q", v)
	}
}

func TestQueue(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()
	q := Key("jobs", "test")

	now := time.Now().UTC().Truncate(time.Second)
	for _, k := range []string{"a", "b"} {
		if err := Enqueue(ctx, r, q, RefreshJob{Key: k, Force: k == "b", RequestedAt: now}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if n, err := QueueLen(ctx, r, q); err != nil || n != 2 {
		t.Fatalf("QueueLen = %d, %v", n, err)
	}

	first, err := Dequeue(ctx, r, q, time.Second)
	if err != nil || first == nil {
		t.Fatalf("Dequeue: %+v, %v", first, err)
	}
	if first.Key != "a" || first.Force || !first.RequestedAt.Equal(now) {
		t.Errorf("first job = %+v, want FIFO order", first)
	}
	second, err := Dequeue(ctx, r, q, time.Second)
	if err != nil || second == nil || second.Key != "b" || !second.Force {
		t.Errorf("second job = %+v, %v", second, err)
	}
}

func TestDequeueCancelled(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job, err := Dequeue(ctx, r, Key("jobs", "empty"), time.Second)
	if job != nil || err != nil {
		t.Errorf("Dequeue on cancelled ctx = %+v, %v; want nil, nil", job, err)
	}
}
