// Package feed builds the ingest.SourceClient selected by FEED_KIND.
// The worker and the diagnose command both go through NewSourceFromEnv.
package feed

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"infopulse/internal/infra/newsapi"
	"infopulse/internal/infra/scraper"
	"infopulse/internal/observability/tracing"
	pkgconfig "infopulse/internal/pkg/config"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/usecase/ingest"
)

const (
	KindNewsAPI = "newsapi"
	KindRSS     = "rss"
)

// RSSConfig configures the RSS or Atom source.
type RSSConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// LoadRSSConfigFromEnv reads FEED_BASE_URL, FEED_USER_AGENT and FEED_TIMEOUT.
// FEED_BASE_URL must be an absolute http(s) URL.
func LoadRSSConfigFromEnv() (RSSConfig, error) {
	cfg := RSSConfig{
		URL:       pkgconfig.LoadEnvString("FEED_BASE_URL", ""),
		UserAgent: pkgconfig.LoadEnvString("FEED_USER_AGENT", ""),
		Timeout:   newsapi.TimeoutFromEnv(),
	}
	if err := pkgconfig.ValidateHTTPURL(cfg.URL); err != nil {
		return cfg, fmt.Errorf("FEED_BASE_URL is required for FEED_KIND=rss: %w", err)
	}
	return cfg, nil
}

// NewRSSSource builds a traced RSS source bounded by cfg.Timeout.
func NewRSSSource(cfg RSSConfig) *scraper.RSSSource {
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tracing.NewTransport(http.DefaultTransport),
	}
	return scraper.NewRSSSource(cfg.URL, cfg.UserAgent, client)
}

// NewSourceFromEnv returns the source named by FEED_KIND (default newsapi).
// A nil cb leaves each source on its own news-feed breaker.
func NewSourceFromEnv(logger *slog.Logger, cb *circuitbreaker.CircuitBreaker) (ingest.SourceClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kind := pkgconfig.LoadEnvString("FEED_KIND", KindNewsAPI)
	if err := pkgconfig.ValidateOneOf(kind, KindNewsAPI, KindRSS); err != nil {
		return nil, fmt.Errorf("FEED_KIND: %w", err)
	}

	switch kind {
	case KindRSS:
		cfg, err := LoadRSSConfigFromEnv()
		if err != nil {
			return nil, err
		}
		src := NewRSSSource(cfg)
		if cb != nil {
			src.WithCircuitBreaker(cb)
		}
		logger.Info("rss feed source initialized",
			slog.String("url", cfg.URL),
			slog.Duration("timeout", cfg.Timeout))
		return src, nil

	default:
		cfg, err := newsapi.LoadConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("load feed configuration: %w", err)
		}
		var opts []newsapi.Option
		if cb != nil {
			opts = append(opts, newsapi.WithCircuitBreaker(cb))
		}
		logger.Info("news feed client initialized",
			slog.String("base_url", cfg.BaseURL),
			slog.Any("categories", cfg.Categories),
			slog.Int("page_size", cfg.PageSize),
			slog.Duration("timeout", cfg.Timeout))
		return newsapi.NewClient(cfg, opts...), nil
	}
}
