// Package metrics provides centralized Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics track scheduled ingestion runs
var (
	// IngestRunsTotal counts runs by result: completed, skipped, source_error
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs by result",
		},
		[]string{"result"},
	)

	// IngestRunDuration measures the wall time of a completed run
	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Ingestion run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// IngestArticlesTotal counts per-article outcomes: new, duplicate, error
	IngestArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_articles_total",
			Help: "Total number of processed article references by outcome",
		},
		[]string{"outcome"},
	)

	// IngestLastRunArticles reports the counters of the most recent run
	IngestLastRunArticles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingest_last_run_articles",
			Help: "Article counters of the most recent ingestion run",
		},
		[]string{"outcome"},
	)
)

// Feed metrics track SourceClient calls
var (
	// FeedFetchDuration measures time to fetch the latest references
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch the latest references from the feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"kind"},
	)

	// FeedFetchErrors counts failed feed fetches
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of failed feed fetches",
		},
		[]string{"kind", "error_type"},
	)

	// FeedReferencesTotal counts references returned by the feed
	FeedReferencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_references_total",
			Help: "Total number of article references returned by the feed",
		},
		[]string{"kind"},
	)
)

// Extraction metrics track ContentExtractor behavior
var (
	// ExtractionStrategyTotal counts which strategy produced each article's content
	ExtractionStrategyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_strategy_total",
			Help: "Total number of extractions by matching strategy",
		},
		[]string{"strategy"},
	)

	// ContentFetchDuration measures time to fetch and parse an article page
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures extracted content size in bytes
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_bytes",
			Help: "Extracted article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600,
			},
		},
	)
)

// Storage and hand-off metrics
var (
	// StoreOperationDuration measures ArticleStore calls made by the pipeline
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "ArticleStore operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	// EventsPublishedTotal counts downstream article events by result
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of ingested-article events published downstream",
		},
		[]string{"result"},
	)
)

// Resilience metrics
var (
	// CircuitBreakerState is 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state changes by target state",
		},
		[]string{"name", "to"},
	)
)
