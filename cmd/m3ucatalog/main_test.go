package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voyagen/m3ucatalog/internal/config"
	"github.com/voyagen/m3ucatalog/internal/models"
	"github.com/voyagen/m3ucatalog/internal/service"
	"github.com/voyagen/m3ucatalog/internal/store"
)

func TestPrintSummary(t *testing.T) {
	res := &service.Result{
		Catalog: &models.Catalog{
			Entries: []models.MediaEntry{
				{ID: 0, Name: "A", Type: models.MediaTypeMovies},
				{ID: 1, Name: "B", Type: models.MediaTypeChannels},
			},
			Categories: map[string][]int{"Outros": {0, 1}},
		},
		RunID:     "run-1",
		Source:    "http://example.com/list.m3u",
		Bytes:     2048,
		Duration:  1500 * time.Millisecond,
		Persisted: false,
	}
	var buf bytes.Buffer
	printSummary(&buf, res)
	out := buf.String()
	for _, want := range []string{
		"catalog run-1: 2 entries (downloaded from http://example.com/list.m3u)",
		"2.0 kB in 1.5s",
		"warning: catalog could not be cached",
		"types: channels=1 movies=1 other=0 series=0",
		"categories: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	pp := newProgressPrinter(&buf)

	pp.Print(service.Progress{Phase: service.PhaseDownload, Loaded: 512, Total: 1024, Percent: 50, ETASeconds: 3})
	// Same phase within the throttle window is dropped.
	pp.Print(service.Progress{Phase: service.PhaseDownload, Loaded: 600, Total: 1024, Percent: 58})
	pp.Print(service.Progress{Phase: service.PhaseParse, Percent: 40, Entries: 12345})
	pp.Print(service.Progress{Phase: service.PhaseDone, Percent: 100})

	out := buf.String()
	if !strings.Contains(out, "download  50%  512 B / 1.0 kB  eta 3s") {
		t.Errorf("download line missing:\n%q", out)
	}
	if strings.Contains(out, " 58%") {
		t.Errorf("throttled update printed:\n%q", out)
	}
	if !strings.Contains(out, "parse     40%  12,345 entries") {
		t.Errorf("parse line missing:\n%q", out)
	}
	if !strings.HasSuffix(out, "done     100%\n") {
		t.Errorf("final line not terminated:\n%q", out)
	}
}

func TestOpenBackendMemory(t *testing.T) {
	cfg := config.Default()
	cfg.PlaylistURL = "http://example.com/list.m3u"
	cfg.CacheBackend = config.BackendMemory

	be, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer be.Close()
	if be.redis != nil || be.store == nil {
		t.Errorf("backend = %+v", be)
	}
}

func TestOpenBackendSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.PlaylistURL = "http://example.com/list.m3u"
	cfg.SQLitePath = t.TempDir() + "/cache.db"

	be, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	be.Close()
	be.Close() // second close is a no-op
}

func TestOpenBackendWithoutRedis(t *testing.T) {
	cfg := config.Default()
	cfg.PlaylistURL = "http://example.com/list.m3u"
	cfg.CacheBackend = config.BackendMemory
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	be, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer be.Close()
	if be.redis != nil {
		t.Error("unreachable redis was kept")
	}
	if be.store == nil {
		t.Fatal("no store")
	}
}

func TestOpenBackendFallsBackToMemory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.PlaylistURL = "http://example.com/list.m3u"
	cfg.SQLitePath = filepath.Join(file, "sub", "cache.db")

	be, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer be.Close()
	if _, ok := be.store.(*store.Memory); !ok {
		t.Fatalf("store = %T, want *store.Memory", be.store)
	}

	// The fallback still caches within the process.
	cc := store.NewCatalogCache(be.store, time.Hour)
	if !cc.Write(context.Background(), "playlist", &models.Catalog{Categories: map[string][]int{}}) {
		t.Fatal("Write failed")
	}
	if _, ok := cc.Read(context.Background(), "playlist"); !ok {
		t.Error("Read missed after Write")
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.CacheBackend = "mongo"
	if _, err := openBackend(context.Background(), cfg); !errors.Is(err, errUnknownBackend) {
		t.Errorf("err = %v, want errUnknownBackend", err)
	}
}

func TestSleepCtxStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if sleepCtx(ctx, time.Minute) {
		t.Error("sleepCtx = true after cancel")
	}
	if time.Since(start) > time.Second {
		t.Errorf("sleepCtx blocked for %s", time.Since(start))
	}
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("sleepCtx = false without cancel")
	}
}
