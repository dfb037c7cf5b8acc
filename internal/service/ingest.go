// Package service runs catalog loads: cache lookup, download, parse,
// category indexing and cache write, reporting progress along the way.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/catalog"
	"github.com/voyagen/m3ucatalog/internal/classify"
	"github.com/voyagen/m3ucatalog/internal/fetcher"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/metrics"
	"github.com/voyagen/m3ucatalog/internal/models"
	"github.com/voyagen/m3ucatalog/internal/parser"
	"github.com/voyagen/m3ucatalog/internal/store"
)

// ErrBusy is returned when a load is already running, in this process or,
// with a Redis lock configured, in another one.
var ErrBusy = errors.New("a catalog load is already running")

// DefaultLockTTL bounds how long a crashed process can hold the ingestion lock.
const DefaultLockTTL = 15 * time.Minute

// Options configures a Loader.
type Options struct {
	PlaylistURL   string
	Alternates    []string
	ProxyPrefixes []string
	CacheKey      string
	BatchSize     int
	Classifier    parser.Classifier // defaults to classify.DefaultRules()

	// Lock, when set, serializes ingestions across processes.
	Lock    *cache.Redis
	LockTTL time.Duration

	// OnProgress receives every progress snapshot.
	OnProgress func(Progress)
}

// Result is the outcome of a successful load.
type Result struct {
	Catalog   *models.Catalog
	FromCache bool
	// Persisted is false when the cache write failed; the catalog is still usable.
	Persisted bool
	RunID     string
	Source    string
	Bytes     int64
	Duration  time.Duration
	Timestamp time.Time
}

// Loader produces catalogs. At most one load runs at a time per Loader.
type Loader struct {
	fetcher *fetcher.Fetcher
	cache   *store.CatalogCache
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	progress atomic.Pointer[Progress]
}

// NewLoader returns a Loader that downloads with f and caches through c.
func NewLoader(f *fetcher.Fetcher, c *store.CatalogCache, opts Options) *Loader {
	if opts.CacheKey == "" {
		opts.CacheKey = "playlist"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.DefaultRules()
	}
	l := &Loader{fetcher: f, cache: c, opts: opts, now: time.Now}
	l.progress.Store(&Progress{Phase: PhaseIdle, UpdatedAt: l.now()})
	return l
}

// CacheKey returns the key catalogs are stored under.
func (l *Loader) CacheKey() string { return l.opts.CacheKey }

// Progress returns the latest progress snapshot.
func (l *Loader) Progress() Progress { return *l.progress.Load() }

// Running reports whether a load is in progress.
func (l *Loader) Running() bool { return l.Progress().Active() }

// Load returns the cached catalog when it is fresh and ingests otherwise.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	return l.run(ctx, false)
}

// Refresh ingests unconditionally, replacing the cached catalog.
func (l *Loader) Refresh(ctx context.Context) (*Result, error) {
	return l.run(ctx, true)
}

// ClearCache drops the cached catalog. A running load is not affected.
func (l *Loader) ClearCache(ctx context.Context) {
	l.cache.Delete(ctx, l.opts.CacheKey)
}

func (l *Loader) run(ctx context.Context, force bool) (*Result, error) {
	if !l.mu.TryLock() {
		return nil, ErrBusy
	}
	defer l.mu.Unlock()

	runID := uuid.NewString()
	start := l.now()

	if !force {
		l.report(Progress{RunID: runID, Phase: PhaseCache})
		if rec, ok := l.cache.Read(ctx, l.opts.CacheKey); ok {
			cat := rec.Catalog
			l.report(Progress{RunID: runID, Phase: PhaseDone, Percent: donePercent, Entries: cat.Len()})
			metrics.IngestRunsTotal.WithLabelValues("cache_hit").Inc()
			metrics.CatalogEntries.Set(float64(cat.Len()))
			logging.Info("load %s: %s entries from cache (age %s)",
				runID, humanize.Comma(int64(cat.Len())), rec.Age(l.now()).Round(time.Second))
			return &Result{
				Catalog:   &cat,
				FromCache: true,
				Persisted: true,
				RunID:     runID,
				Duration:  l.now().Sub(start),
				Timestamp: rec.CreatedAt(),
			}, nil
		}
	}

	if l.opts.Lock != nil {
		unlock, err := cache.TryLock(ctx, l.opts.Lock, cache.LockKey(l.opts.CacheKey), l.opts.LockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			l.report(Progress{Phase: PhaseIdle})
			return nil, ErrBusy
		case err != nil:
			logging.Warn("load %s: ingestion lock unavailable, continuing without it: %v", runID, err)
		default:
			defer unlock()
		}
	}

	res, err := l.ingest(ctx, runID)
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		l.report(Progress{RunID: runID, Phase: PhaseFailed, Error: err.Error()})
		logging.Error("load %s: %v", runID, err)
		return nil, err
	}
	res.Duration = l.now().Sub(start)
	metrics.IngestRunsTotal.WithLabelValues("ingested").Inc()
	metrics.IngestDuration.Observe(res.Duration.Seconds())
	metrics.CatalogEntries.Set(float64(res.Catalog.Len()))
	return res, nil
}

// ingest downloads, parses and indexes the playlist, then writes the cache.
func (l *Loader) ingest(ctx context.Context, runID string) (*Result, error) {
	alternates := append([]string(nil), l.opts.Alternates...)
	alternates = append(alternates, fetcher.ProxyURLs(l.opts.PlaylistURL, l.opts.ProxyPrefixes)...)

	dlStart := l.now()
	l.report(Progress{RunID: runID, Phase: PhaseDownload, Total: -1})
	doc, err := l.fetcher.Fetch(ctx, l.opts.PlaylistURL, alternates, func(loaded, total int64) {
		p := Progress{RunID: runID, Phase: PhaseDownload, Loaded: loaded, Total: total, Percent: downloadPercent(loaded, total)}
		if d := eta(l.now().Sub(dlStart), loaded, total); d > 0 {
			p.ETASeconds = int(d.Round(time.Second) / time.Second)
		}
		l.report(p)
	})
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	logging.Info("load %s: downloaded %s from %s in %s (%d attempt(s))",
		runID, humanize.Bytes(uint64(doc.Bytes)), doc.Source, doc.Duration.Round(time.Millisecond), doc.Attempts)

	b := catalog.NewBuilder(0)
	l.report(Progress{RunID: runID, Phase: PhaseParse, Source: doc.Source})
	stats, err := parser.Parse(ctx, doc.Text, l.opts.Classifier, b.Add, parser.Options{
		BatchSize: l.opts.BatchSize,
		OnProgress: func(pp parser.Progress) {
			l.report(Progress{RunID: runID, Phase: PhaseParse, Percent: pp.Percent, Entries: pp.Entries, Source: doc.Source})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	cat := b.Catalog()

	l.report(Progress{RunID: runID, Phase: PhaseSave, Percent: savePercent, Entries: cat.Len(), Source: doc.Source})
	persisted := l.cache.Write(ctx, l.opts.CacheKey, cat)
	if !persisted {
		logging.Warn("load %s: catalog not cached; it will be downloaded again next time", runID)
	}

	now := l.now()
	l.report(Progress{RunID: runID, Phase: PhaseDone, Percent: donePercent, Entries: cat.Len(), Source: doc.Source})
	logging.Info("load %s: %s entries in %s categories (%s lines, %d discarded)",
		runID, humanize.Comma(int64(cat.Len())), humanize.Comma(int64(len(cat.Categories))),
		humanize.Comma(int64(stats.Lines)), stats.Discarded)

	return &Result{
		Catalog:   cat,
		Persisted: persisted,
		RunID:     runID,
		Source:    doc.Source,
		Bytes:     doc.Bytes,
		Timestamp: now,
	}, nil
}

// report stamps and publishes a progress snapshot.
func (l *Loader) report(p Progress) {
	p.UpdatedAt = l.now()
	l.progress.Store(&p)
	if l.opts.OnProgress != nil {
		l.opts.OnProgress(p)
	}
}
