package newsapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgconfig "infopulse/internal/pkg/config"
)

// ErrMissingAPIKey is returned when FEED_API_KEY is not set. There is no default key.
var ErrMissingAPIKey = errors.New("FEED_API_KEY is required")

// Config holds the news feed client configuration.
type Config struct {
	// BaseURL is the top-headlines endpoint.
	// Default: https://newsapi.org/v2/top-headlines
	BaseURL string

	// APIKey authenticates against the feed API. Required, no default.
	APIKey string

	// RegionParam and APIKeyParam name the query parameters carrying the region and key.
	// Defaults: region, apiKey. newsapi.org itself expects FEED_REGION_PARAM=country.
	RegionParam string
	APIKeyParam string

	// Categories, when set, makes FetchLatest issue one request per category.
	Categories []string

	// PageSize is sent as pageSize when positive. NewsAPI caps it at 100.
	PageSize int

	// Timeout bounds one HTTP request. Default: 15s
	Timeout time.Duration

	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://newsapi.org/v2/top-headlines",
		RegionParam: "region",
		APIKeyParam: "apiKey",
		PageSize:    0,
		Timeout:     15 * time.Second,
		UserAgent:   "InfoPulseBot/1.0",
	}
}

// Validate checks that the configuration can produce a working client.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if err := pkgconfig.ValidateHTTPURL(c.BaseURL); err != nil {
		return fmt.Errorf("FEED_BASE_URL: %w", err)
	}
	if c.RegionParam == "" || c.APIKeyParam == "" {
		return errors.New("query parameter names must not be empty")
	}
	if c.PageSize < 0 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 0 and 100, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// LoadConfigFromEnv reads FEED_BASE_URL, FEED_API_KEY, FEED_REGION_PARAM, FEED_API_KEY_PARAM,
// FEED_CATEGORIES, FEED_PAGE_SIZE, FEED_TIMEOUT and FEED_USER_AGENT.
//
// Tunables fall back to defaults with a warning. A missing API key is an error.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.BaseURL = pkgconfig.LoadEnvString("FEED_BASE_URL", cfg.BaseURL)
	cfg.APIKey = pkgconfig.LoadEnvString("FEED_API_KEY", "")
	cfg.RegionParam = pkgconfig.LoadEnvString("FEED_REGION_PARAM", cfg.RegionParam)
	cfg.APIKeyParam = pkgconfig.LoadEnvString("FEED_API_KEY_PARAM", cfg.APIKeyParam)
	cfg.UserAgent = pkgconfig.LoadEnvString("FEED_USER_AGENT", cfg.UserAgent)
	cfg.Categories = pkgconfig.LoadEnvList("FEED_CATEGORIES")

	pageSize := pkgconfig.LoadEnvInt("FEED_PAGE_SIZE", cfg.PageSize, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})
	cfg.PageSize = pageSize.Value.(int)
	pageSize.LogWarnings(nil, "feed configuration fallback", "FEED_PAGE_SIZE")

	cfg.Timeout = TimeoutFromEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TimeoutFromEnv reads FEED_TIMEOUT, the per-request limit of every feed kind.
// Values outside 1s..2m fall back to the 15s default with a warning.
func TimeoutFromEnv() time.Duration {
	def := DefaultConfig().Timeout
	timeout := pkgconfig.LoadEnvDuration("FEED_TIMEOUT", def, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	timeout.LogWarnings(nil, "feed configuration fallback", "FEED_TIMEOUT")
	return timeout.Value.(time.Duration)
}
