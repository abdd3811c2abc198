// Package metrics provides Prometheus metrics for the card lookup service.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_lookup_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "card_lookup_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Catalog Metrics
	CatalogLoadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_catalog_loads_total",
			Help: "Number of completed catalog loads",
		},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "card_lookup_catalog_entries",
			Help: "Number of merged entries in the catalog",
		},
	)

	CatalogRawRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "card_lookup_catalog_raw_records",
			Help: "Number of raw records fetched per language",
		},
		[]string{"language"},
	)

	CatalogFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_lookup_catalog_fetch_failures_total",
			Help: "Card list fetches that failed, by language",
		},
		[]string{"language"},
	)

	// Match Engine Metrics
	IndexRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_index_rebuilds_total",
			Help: "Number of search index rebuilds",
		},
	)

	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "card_lookup_index_size",
			Help: "Number of items in the current search index",
		},
	)

	MatchTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_lookup_match_tier_total",
			Help: "Lookups by the tier that answered them",
		},
		[]string{"tier"}, // "exact", "prefix", "substring", "alias", "fuzzy", "none"
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "card_lookup_match_duration_seconds",
			Help:    "Time taken to answer a fuzzy lookup",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	MatchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_match_cache_hits_total",
			Help: "Lookup result cache hit count",
		},
	)

	MatchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_match_cache_misses_total",
			Help: "Lookup result cache miss count",
		},
	)

	// Image Cache Metrics
	ImageDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_lookup_image_downloads_total",
			Help: "Image downloads by result",
		},
		[]string{"result"}, // "success", "http_error", "error"
	)

	ImagesPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_images_pruned_total",
			Help: "Cached images removed by age",
		},
	)

	// Lookup Log Metrics
	LookupLogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_lookup_lookup_log_errors_total",
			Help: "Lookup records that failed to save",
		},
	)
)
