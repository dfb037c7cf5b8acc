package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshJob asks a serve process to re-ingest the catalog stored under Key.
// Force skips the fresh-cache check, as POST /api/catalog/refresh does.
type RefreshJob struct {
	Key         string    `json:"key"`
	Force       bool      `json:"force"`
	RequestedAt time.Time `json:"requested_at"`
}

// DefaultQueue is the list shared by every process serving the same Redis.
var DefaultQueue = Key("jobs", "refresh")

// Enqueue schedules a refresh. Jobs are consumed oldest first.
func Enqueue(ctx context.Context, r *Redis, queue string, job RefreshJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode refresh job: %w", err)
	}
	if err := r.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("enqueue refresh %s: %w", job.Key, err)
	}
	return nil
}

// Dequeue waits up to timeout for the oldest refresh job. An empty queue or
// a cancelled ctx yields (nil, nil) so the worker loop can re-check ctx.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*RefreshJob, error) {
	res, err := r.client.BRPop(ctx, timeout, queue).Result()
	switch {
	case errors.Is(err, redis.Nil), err != nil && ctx.Err() != nil:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("dequeue refresh: %w", err)
	case len(res) != 2:
		return nil, nil
	}
	var job RefreshJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode refresh job: %w", err)
	}
	return &job, nil
}

// QueueLen reports how many refreshes are waiting.
func QueueLen(ctx context.Context, r *Redis, queue string) (int64, error) {
	return r.client.LLen(ctx, queue).Result()
}
