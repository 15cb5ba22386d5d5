// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the ingestion worker's metrics:
//   - Run metrics (results, durations, last-run counters)
//   - Feed fetch metrics
//   - Extraction strategy and content size metrics
//   - ArticleStore and event hand-off metrics
//
// All metrics are registered with the Prometheus default registry and
// exposed via the worker's /metrics endpoint.
package metrics
