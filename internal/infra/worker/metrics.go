package worker

import (
	"infopulse/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the scheduler.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// job metrics for scheduled ingestion runs.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total
//   - worker_config_fallbacks_total
//   - worker_config_fallback_active
//
// Job metrics:
//   - worker_ingest_job_runs_total{status}: completed, source_error, skipped, panic
//   - worker_ingest_job_duration_seconds
//   - worker_ingest_job_articles_stored_total
//   - worker_ingest_job_last_success_timestamp
//
// NewWorkerMetrics registers through promauto, so it must be called once per process.
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal            *prometheus.CounterVec
	JobDurationSeconds      prometheus.Histogram
	JobArticlesStoredTotal  prometheus.Counter
	JobLastSuccessTimestamp prometheus.Gauge
}

// Job statuses.
const (
	JobCompleted   = "completed"
	JobSourceError = "source_error"
	JobSkipped     = "skipped"
	JobPanic       = "panic"
)

// NewWorkerMetrics creates and registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_ingest_job_runs_total",
			Help: "Total number of scheduled ingestion job triggers by status",
		}, []string{"status"}),

		JobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_ingest_job_duration_seconds",
			Help:    "Duration of scheduled ingestion jobs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		JobArticlesStoredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_ingest_job_articles_stored_total",
			Help: "Total number of new articles stored across all jobs",
		}),

		JobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_ingest_job_last_success_timestamp",
			Help: "Unix timestamp of the last job that read the feed successfully",
		}),
	}
}

// RecordJobRun increments the job run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes a job duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

// RecordArticlesStored adds the new articles of one job.
func (m *WorkerMetrics) RecordArticlesStored(count int) {
	m.JobArticlesStoredTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful job completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
