package main

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/service"
)

// runRefreshWorker continuously dequeues refresh jobs from Redis and runs
// them. It stops when ctx is cancelled (graceful shutdown).
func runRefreshWorker(ctx context.Context, rds *cache.Redis, loader *service.Loader, publish func(*service.Result)) {
	logging.Info("refresh worker started")
	for {
		select {
		case <-ctx.Done():
			logging.Info("refresh worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			logging.Error("refresh worker: dequeue error: %v", err)
			if !sleepCtx(ctx, 2*time.Second) {
				logging.Info("refresh worker stopping")
				return
			}
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}
		if job.Key != loader.CacheKey() {
			logging.Warn("refresh worker: skipping job for key %q (serving %q)", job.Key, loader.CacheKey())
			continue
		}

		logging.Info("refresh worker: processing job key=%q force=%v queued %s ago",
			job.Key, job.Force, time.Since(job.RequestedAt).Round(time.Second))

		var res *service.Result
		if job.Force {
			res, err = loader.Refresh(ctx)
		} else {
			res, err = loader.Load(ctx)
		}
		switch {
		case errors.Is(err, service.ErrBusy):
			logging.Info("refresh worker: load already running, job dropped")
		case err != nil:
			logging.Error("refresh worker: %v", err)
		default:
			publish(res)
		}
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
