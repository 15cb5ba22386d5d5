package metrics

import (
	"time"
)

// Run results
const (
	RunCompleted   = "completed"
	RunSkipped     = "skipped"
	RunSourceError = "source_error"
)

// RecordRun records a finished ingestion run and its per-article counters.
func RecordRun(result string, duration time.Duration, newCount, duplicateCount, errorCount int) {
	IngestRunsTotal.WithLabelValues(result).Inc()
	if result == RunSkipped {
		return
	}
	IngestRunDuration.Observe(duration.Seconds())
	IngestLastRunArticles.WithLabelValues("new").Set(float64(newCount))
	IngestLastRunArticles.WithLabelValues("duplicate").Set(float64(duplicateCount))
	IngestLastRunArticles.WithLabelValues("error").Set(float64(errorCount))
}

// RecordArticleOutcome counts one processed reference.
// Outcome is one of "new", "duplicate" or "error".
func RecordArticleOutcome(outcome string) {
	IngestArticlesTotal.WithLabelValues(outcome).Inc()
}

// RecordFeedFetch records a successful feed fetch.
func RecordFeedFetch(kind string, duration time.Duration, references int) {
	FeedFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	FeedReferencesTotal.WithLabelValues(kind).Add(float64(references))
}

// RecordFeedFetchError records a failed feed fetch.
// errorType is a short classification such as "network", "status" or "decode".
func RecordFeedFetchError(kind, errorType string, duration time.Duration) {
	FeedFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	FeedFetchErrors.WithLabelValues(kind, errorType).Inc()
}

// RecordExtraction records which strategy produced an article's content.
//
// Example:
//
//	start := time.Now()
//	res := extractor.Extract(ctx, url)
//	RecordExtraction(res.Strategy, time.Since(start), len(res.Content))
func RecordExtraction(strategy string, duration time.Duration, size int) {
	ExtractionStrategyTotal.WithLabelValues(strategy).Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordStoreOperation records the duration of an ArticleStore call
// (e.g. "find_by_url", "create").
func RecordStoreOperation(operation string, duration time.Duration) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished records a downstream event publish attempt.
func RecordEventPublished(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	EventsPublishedTotal.WithLabelValues(result).Inc()
}

// Circuit breaker states as exported by circuit_breaker_state.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// RecordBreakerState sets the breaker's gauge. to is the state name for the
// transition counter; pass "" when setting the initial state.
func RecordBreakerState(name string, state int, to string) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	if to != "" {
		CircuitBreakerTransitionsTotal.WithLabelValues(name, to).Inc()
	}
}
