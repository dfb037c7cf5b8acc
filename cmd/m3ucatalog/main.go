package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/voyagen/m3ucatalog/internal/catalog"
	"github.com/voyagen/m3ucatalog/internal/config"
	"github.com/voyagen/m3ucatalog/internal/fetcher"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/server"
	"github.com/voyagen/m3ucatalog/internal/service"
	"github.com/voyagen/m3ucatalog/internal/store"
)

type serveCmd struct {
	NoPreload bool `arg:"--no-preload" help:"start without loading the catalog; wait for POST /api/catalog/refresh"`
}

type ingestCmd struct {
	Force bool `arg:"--force" help:"ignore a fresh cached catalog and download again"`
}

type exportCmd struct {
	Out   string `arg:"--out,required" help:"file to write the compact catalog to"`
	Gzip  bool   `arg:"--gzip" help:"gzip the output"`
	Force bool   `arg:"--force" help:"ignore a fresh cached catalog and download again"`
}

type clearCacheCmd struct{}

type args struct {
	Config     string         `arg:"--config,env:M3UCATALOG_CONFIG" help:"YAML config file; otherwise the environment (PLAYLIST_URL, ...) is used"`
	Serve      *serveCmd      `arg:"subcommand:serve" help:"run the HTTP API"`
	Ingest     *ingestCmd     `arg:"subcommand:ingest" help:"load the catalog once and print a summary"`
	Export     *exportCmd     `arg:"subcommand:export" help:"load the catalog and write it in the compact format"`
	ClearCache *clearCacheCmd `arg:"subcommand:clear-cache" help:"drop the cached catalog"`
}

func (args) Description() string {
	return "m3ucatalog downloads an M3U playlist, classifies and groups its entries, and caches the catalog.\n"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand (serve, ingest, export or clear-cache)")
	}

	var cfg *config.Config
	var err error
	if a.Config != "" {
		cfg, err = config.LoadFromFile(a.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal("config: %v", err)
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok && os.Getenv("DEBUG") == "" {
		logging.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache backend: %v\n", err)
		os.Exit(1)
	}
	defer be.Close()

	opts := service.Options{
		PlaylistURL:   cfg.PlaylistURL,
		Alternates:    cfg.AlternateURLs,
		ProxyPrefixes: cfg.ProxyPrefixes,
		CacheKey:      cfg.CacheKey,
		BatchSize:     cfg.BatchSize,
		Classifier:    cfg.Classifier,
		Lock:          be.redis,
	}
	if a.Serve == nil {
		opts.OnProgress = newProgressPrinter(os.Stderr).Print
	}
	loader := service.NewLoader(
		fetcher.New(cfg.UserAgent, cfg.Timeout),
		store.NewCatalogCache(be.store, cfg.CacheTTL),
		opts,
	)

	switch {
	case a.Serve != nil:
		err = runServe(ctx, cfg, loader, be, a.Serve)
	case a.Ingest != nil:
		err = runIngest(ctx, loader, a.Ingest)
	case a.Export != nil:
		err = runExport(ctx, loader, a.Export)
	case a.ClearCache != nil:
		loader.ClearCache(ctx)
		fmt.Fprintf(os.Stderr, "cache %q cleared (%s backend)\n", loader.CacheKey(), cfg.CacheBackend)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		be.Close()
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config, loader *service.Loader, be *backend, cmd *serveCmd) error {
	srv := server.New(loader, cfg, be.redis)

	if !cmd.NoPreload {
		go func() {
			res, err := loader.Load(ctx)
			if err != nil {
				if !errors.Is(err, service.ErrBusy) && ctx.Err() == nil {
					logging.Error("initial load: %v", err)
				}
				return
			}
			srv.Publish(res)
		}()
	}

	// Queued refreshes need Redis; without it POST ?async=true runs in-process.
	if be.redis != nil {
		go runRefreshWorker(ctx, be.redis, loader, srv.Publish)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func runIngest(ctx context.Context, loader *service.Loader, cmd *ingestCmd) error {
	res, err := load(ctx, loader, cmd.Force)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, res)
	return nil
}

func runExport(ctx context.Context, loader *service.Loader, cmd *exportCmd) error {
	res, err := load(ctx, loader, cmd.Force)
	if err != nil {
		return err
	}
	f, err := os.Create(cmd.Out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := catalog.Export(f, res.Catalog, cmd.Gzip); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	info, err := os.Stat(cmd.Out)
	if err == nil {
		fmt.Fprintf(os.Stderr, "wrote %d entries to %s (%s)\n", res.Catalog.Len(), cmd.Out, formatBytes(info.Size()))
	}
	return nil
}

func load(ctx context.Context, loader *service.Loader, force bool) (*service.Result, error) {
	if force {
		return loader.Refresh(ctx)
	}
	return loader.Load(ctx)
}
