// Package metrics defines the Prometheus collectors for the ingestion
// pipeline, the catalog cache and the HTTP API. All collectors register with
// the default registry via promauto; mount promhttp.Handler() to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics
var (
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucatalog_fetch_attempts_total",
			Help: "Playlist download attempts by source role and outcome",
		},
		[]string{"role", "outcome"}, // role: primary|alternate, outcome: ok|error|status|empty|truncated
	)

	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "m3ucatalog_fetch_bytes_total",
			Help: "Total playlist bytes received",
		},
	)
)

// Parse metrics
var (
	ParseLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "m3ucatalog_parse_lines_total",
			Help: "Total playlist lines scanned",
		},
	)

	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucatalog_entries_total",
			Help: "Entries emitted by the parser, by media type",
		},
		[]string{"type"},
	)
)

// Ingestion metrics
var (
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucatalog_ingest_runs_total",
			Help: "Catalog loads by outcome",
		},
		[]string{"outcome"}, // cache_hit|ingested|error
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "m3ucatalog_ingest_duration_seconds",
			Help:    "Duration of a full download+parse ingestion",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "m3ucatalog_catalog_entries",
			Help: "Number of entries in the currently published catalog",
		},
	)
)

// Cache metrics
var (
	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucatalog_cache_operations_total",
			Help: "Catalog cache operations by operation and result",
		},
		[]string{"op", "result"}, // op: read|write|delete, result: hit|miss|expired|ok|error
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucatalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "m3ucatalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
