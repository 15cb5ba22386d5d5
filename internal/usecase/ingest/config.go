package ingest

import (
	"fmt"
	"time"

	pkgconfig "infopulse/internal/pkg/config"
)

// Config controls a single ingestion run.
type Config struct {
	// Region is passed to SourceClient.FetchLatest as the region query parameter.
	// Default: us
	Region string

	// Concurrency bounds how many references are processed at once.
	// Default: 5
	Concurrency int

	// RunTimeout bounds a whole run. Default: 10m
	RunTimeout time.Duration

	// StoreTimeout bounds each ArticleStore call. Default: 10s
	StoreTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Region:       "us",
		Concurrency:  5,
		RunTimeout:   10 * time.Minute,
		StoreTimeout: 10 * time.Second,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 50 {
		return fmt.Errorf("concurrency must be between 1 and 50, got %d", c.Concurrency)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %v", c.RunTimeout)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive, got %v", c.StoreTimeout)
	}
	return nil
}

// LoadConfigFromEnv reads FEED_REGION, INGEST_CONCURRENCY, INGEST_RUN_TIMEOUT and STORE_TIMEOUT.
// Invalid values fall back to defaults with a warning; the result always validates.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.Region = pkgconfig.LoadEnvString("FEED_REGION", cfg.Region)

	results := map[string]pkgconfig.ConfigLoadResult{}

	r := pkgconfig.LoadEnvInt("INGEST_CONCURRENCY", cfg.Concurrency, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	cfg.Concurrency = r.Value.(int)
	results["INGEST_CONCURRENCY"] = r

	r = pkgconfig.LoadEnvDuration("INGEST_RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 6*time.Hour)
	})
	cfg.RunTimeout = r.Value.(time.Duration)
	results["INGEST_RUN_TIMEOUT"] = r

	r = pkgconfig.LoadEnvDuration("STORE_TIMEOUT", cfg.StoreTimeout, pkgconfig.ValidatePositiveDuration)
	cfg.StoreTimeout = r.Value.(time.Duration)
	results["STORE_TIMEOUT"] = r

	for key, res := range results {
		res.LogWarnings(nil, "ingest configuration fallback", key)
	}
	return cfg
}
