package worker

import (
	"fmt"
	"log/slog"
	"time"

	"infopulse/internal/pkg/config"
)

// WorkerConfig holds the configuration for the ingestion worker process.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules so the worker can start even
// with invalid or missing configuration.
type WorkerConfig struct {
	// Interval is the time between ingestion runs.
	// Range: 30s-24h
	// Default: 10m
	Interval time.Duration

	// CronSchedule, when set, replaces Interval with a cron expression.
	// Format: "minute hour day month weekday"
	// Default: "" (use Interval)
	CronSchedule string

	// Timezone is the IANA timezone name CronSchedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// RunOnStart triggers one run immediately at startup.
	// Default: true
	RunOnStart bool

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Interval:     10 * time.Minute,
		CronSchedule: "",
		Timezone:     "UTC",
		RunOnStart:   true,
		HealthPort:   9091,
	}
}

// Schedule returns the robfig/cron spec the scheduler registers.
//
// Example:
//
//	cfg := DefaultConfig()
//	cfg.Schedule() // "@every 10m0s"
func (c *WorkerConfig) Schedule() string {
	if c.CronSchedule != "" {
		return c.CronSchedule
	}
	return "@every " + c.Interval.String()
}

// Validate checks if the configuration values are valid.
// If multiple fields are invalid, all errors are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateDuration(c.Interval, 30*time.Second, 24*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("interval: %w", err))
	}

	if c.CronSchedule != "" {
		if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
			errors = append(errors, fmt.Errorf("cron schedule: %w", err))
		}
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// Environment variables:
//   - INGEST_INTERVAL: Duration string, e.g. "10m" (default: 10m)
//   - CRON_SCHEDULE: Cron expression replacing INGEST_INTERVAL (default: unset)
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - INGEST_RUN_ON_START: bool (default: true)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//
// Every fallback is logged and counted in the worker config metrics.
// The returned error is always nil (fail-open strategy).
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()

	record := func(field, envKey string, result config.ConfigLoadResult) {
		metrics.SetFallbackActive(field, result.FallbackApplied)
		if !result.FallbackApplied {
			return
		}
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("env_key", envKey),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvDuration("INGEST_INTERVAL", cfg.Interval, func(d time.Duration) error {
		return config.ValidateDuration(d, 30*time.Second, 24*time.Hour)
	})
	cfg.Interval = result.Value.(time.Duration)
	record("interval", "INGEST_INTERVAL", result)

	result = config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	record("cron_schedule", "CRON_SCHEDULE", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	record("timezone", "WORKER_TIMEZONE", result)

	result = config.LoadEnvBool("INGEST_RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = result.Value.(bool)
	record("run_on_start", "INGEST_RUN_ON_START", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	record("health_port", "WORKER_HEALTH_PORT", result)

	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
