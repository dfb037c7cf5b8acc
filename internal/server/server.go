package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voyagen/m3ucatalog/internal/cache"
	"github.com/voyagen/m3ucatalog/internal/catalog"
	"github.com/voyagen/m3ucatalog/internal/config"
	"github.com/voyagen/m3ucatalog/internal/fetcher"
	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/models"
	"github.com/voyagen/m3ucatalog/internal/service"
)

// snapshot is a published, complete catalog plus where it came from.
type snapshot struct {
	catalog   *models.Catalog
	fromCache bool
	runID     string
	source    string
	timestamp time.Time
}

// Server holds dependencies for the HTTP API.
type Server struct {
	loader  *service.Loader
	cfg     *config.Config
	rds     *cache.Redis // nil when REDIS_URL is not set
	mux     *http.ServeMux
	current atomic.Pointer[snapshot]
}

// New creates a Server and registers routes.
// rds may be nil; async refreshes then run in-process instead of being queued.
func New(l *service.Loader, cfg *config.Config, rds *cache.Redis) *Server {
	srv := &Server{loader: l, cfg: cfg, rds: rds, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Catalog
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalogSummary)
	s.mux.HandleFunc("POST /api/catalog/refresh", s.handleRefresh)
	s.mux.HandleFunc("DELETE /api/catalog/cache", s.handleClearCache)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Entries
	s.mux.HandleFunc("GET /api/entries", s.handleListEntries)
	s.mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("GET /api/featured", s.handleFeatured)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)

	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in its middleware chain.
func (s *Server) Handler() http.Handler {
	return withCORS(withLogging(s))
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("server shutdown: %v", err)
		}
	}()

	logging.Info("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// Publish makes the catalog in res visible to readers. Readers never see a
// partially built catalog: the swap happens once res is complete.
func (s *Server) Publish(res *service.Result) {
	if res == nil || res.Catalog == nil {
		return
	}
	s.current.Store(&snapshot{
		catalog:   res.Catalog,
		fromCache: res.FromCache,
		runID:     res.RunID,
		source:    res.Source,
		timestamp: res.Timestamp,
	})
}

// Catalog returns the published catalog, or nil before the first load.
func (s *Server) Catalog() *models.Catalog {
	if snap := s.current.Load(); snap != nil {
		return snap.catalog
	}
	return nil
}

// requireCatalog writes 503 and returns false while nothing is published.
func (s *Server) requireCatalog(w http.ResponseWriter) (*snapshot, bool) {
	snap := s.current.Load()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("catalog is not loaded yet"))
		return nil, false
	}
	return snap, true
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"catalogLoaded": s.current.Load() != nil,
	})
}

type catalogSummary struct {
	Entries    int                      `json:"entries"`
	Categories int                      `json:"categories"`
	ByType     map[models.MediaType]int `json:"byType"`
	FromCache  bool                     `json:"fromCache"`
	Timestamp  time.Time                `json:"timestamp"`
	RunID      string                   `json:"runId"`
	Source     string                   `json:"source,omitempty"`
}

func summarize(snap *snapshot) catalogSummary {
	return catalogSummary{
		Entries:    snap.catalog.Len(),
		Categories: len(snap.catalog.Categories),
		ByType:     catalog.CountByType(snap.catalog),
		FromCache:  snap.fromCache,
		Timestamp:  snap.timestamp,
		RunID:      snap.runID,
		Source:     snap.source,
	}
}

func (s *Server) handleCatalogSummary(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.requireCatalog(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(snap))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := s.loader.Progress()
	body := map[string]any{
		"running":  p.Active(),
		"progress": p,
	}
	if s.rds != nil {
		ctx := r.Context()
		body["locked"] = cache.IsLocked(ctx, s.rds, cache.LockKey(s.loader.CacheKey()))
		if n, err := cache.QueueLen(ctx, s.rds, cache.DefaultQueue); err == nil {
			body["queued"] = n
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.loader.Running() {
		writeErr(w, http.StatusConflict, service.ErrBusy)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		if s.rds != nil {
			job := cache.RefreshJob{Key: s.loader.CacheKey(), Force: true, RequestedAt: time.Now().UTC()}
			if err := cache.Enqueue(r.Context(), s.rds, cache.DefaultQueue, job); err != nil {
				writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue refresh: %w", err))
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"queued": true, "key": job.Key})
			return
		}

		// Detached context: a large playlist can take longer than the request.
		go func() {
			res, err := s.loader.Refresh(context.Background())
			if err != nil {
				if !errors.Is(err, service.ErrBusy) {
					logging.Error("background refresh: %v", err)
				}
				return
			}
			s.Publish(res)
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"started": true, "key": s.loader.CacheKey()})
		return
	}

	res, err := s.loader.Refresh(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusy):
			writeErr(w, http.StatusConflict, err)
		case errors.Is(err, fetcher.ErrNetwork):
			writeErr(w, http.StatusBadGateway, err)
		default:
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.Publish(res)
	writeJSON(w, http.StatusOK, summarize(s.current.Load()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.loader.ClearCache(r.Context())
	writeNoContent(w)
}

type entryPage struct {
	Items  []models.MediaEntry `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	if v := q.Get("type"); v != "" {
		t := models.MediaType(v)
		if !t.Valid() {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid type: %s (use movies, series, channels or other)", v))
			return
		}
		query.Type = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		query.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid offset: %s", v))
			return
		}
		query.Offset = n
	}

	snap, ok := s.requireCatalog(w)
	if !ok {
		return
	}

	// Apply defaults so the response reflects actual values used.
	query = query.Normalize()
	items, total := catalog.Filter(snap.catalog, query)
	if items == nil {
		items = []models.MediaEntry{}
	}
	writeJSON(w, http.StatusOK, entryPage{Items: items, Total: total, Limit: query.Limit, Offset: query.Offset})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	snap, ok := s.requireCatalog(w)
	if !ok {
		return
	}
	e, found := snap.catalog.Entry(id)
	if !found {
		writeErr(w, http.StatusNotFound, fmt.Errorf("entry %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.requireCatalog(w)
	if !ok {
		return
	}
	cats := catalog.Categories(snap.catalog)
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleFeatured(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.requireCatalog(w)
	if !ok {
		return
	}
	e, found := catalog.Featured(snap.catalog, nil)
	if !found {
		writeErr(w, http.StatusNotFound, errors.New("catalog is empty"))
		return
	}
	e.Logo = catalog.ForceHTTPS(e.Logo)
	writeJSON(w, http.StatusOK, e)
}
