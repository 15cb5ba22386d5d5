package extractor

import (
	"fmt"
	"os"
	"time"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	pkgconfig "infopulse/internal/pkg/config"
)

// DefaultUserAgent is a desktop browser string. Many news sites serve bots a consent
// wall or nothing at all.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Policy is the tunable extraction heuristic.
type Policy struct {
	// Selectors are tried in order; the first with non-empty text wins.
	Selectors []string `yaml:"selectors"`

	// ExcludedClasses mark noise. A paragraph carrying one, or nested under an
	// element carrying one, is dropped by the paragraph fallback.
	ExcludedClasses []string `yaml:"excluded_classes"`

	// MinParagraphLength is the rune count a fallback paragraph must exceed.
	MinParagraphLength int `yaml:"min_paragraph_length"`
}

// DefaultPolicy returns the built-in selector list.
func DefaultPolicy() Policy {
	return Policy{
		Selectors: []string{
			`div.Article`,
			`div[itemprop="articleBody"]`,
			`article`,
			`.article-body`,
			`.entry-content`,
			`.post-content`,
			`.content`,
		},
		ExcludedClasses:    []string{"caption", "advertisement", "meta", "footer", "sidebar"},
		MinParagraphLength: 20,
	}
}

// Validate compiles every selector so a typo fails at startup instead of
// silently matching nothing on every page.
func (p Policy) Validate() error {
	if len(p.Selectors) == 0 {
		return fmt.Errorf("at least one selector is required")
	}
	for i, sel := range p.Selectors {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("selector %d %q: %w", i, sel, err)
		}
	}
	if p.MinParagraphLength < 0 {
		return fmt.Errorf("min paragraph length must not be negative, got %d", p.MinParagraphLength)
	}
	return nil
}

// policyFile is the YAML shape. A nil field was left out of the file.
type policyFile struct {
	Selectors          []string `yaml:"selectors"`
	ExcludedClasses    []string `yaml:"excluded_classes"`
	MinParagraphLength *int     `yaml:"min_paragraph_length"`
}

// LoadPolicyFile reads a YAML policy. Fields left out keep their defaults;
// an explicit min_paragraph_length of 0 keeps every paragraph.
//
// Example file:
//
//	selectors:
//	  - div.story-body
//	  - article
//	excluded_classes: [caption, promo]
//	min_paragraph_length: 40
func LoadPolicyFile(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read selectors file: %w", err)
	}
	var fromFile policyFile
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return policy, fmt.Errorf("parse selectors file %s: %w", path, err)
	}

	if len(fromFile.Selectors) > 0 {
		policy.Selectors = fromFile.Selectors
	}
	if fromFile.ExcludedClasses != nil {
		policy.ExcludedClasses = fromFile.ExcludedClasses
	}
	if fromFile.MinParagraphLength != nil {
		policy.MinParagraphLength = *fromFile.MinParagraphLength
	}
	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("selectors file %s: %w", path, err)
	}
	return policy, nil
}

// Config controls page fetching and extraction.
type Config struct {
	UserAgent string

	// Timeout bounds one page fetch. Default: 15s
	Timeout time.Duration

	// MaxBodySize rejects pages larger than this many bytes. Default: 5 MiB
	MaxBodySize int64

	// MaxRedirects bounds followed redirects; each target is validated. Default: 5
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to internal addresses. Default: true
	DenyPrivateIPs bool

	// RatePerSecond limits outbound page fetches. 0 means unlimited.
	RatePerSecond int

	Policy Policy
}

func DefaultConfig() Config {
	return Config{
		UserAgent:      DefaultUserAgent,
		Timeout:        15 * time.Second,
		MaxBodySize:    5 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		RatePerSecond:  0,
		Policy:         DefaultPolicy(),
	}
}

// Validate checks if the configuration values are valid and safe.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("rate per second must not be negative, got %d", c.RatePerSecond)
	}
	return c.Policy.Validate()
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - EXTRACT_USER_AGENT: string (default: desktop Chrome)
//   - EXTRACT_TIMEOUT: duration (default: 15s)
//   - EXTRACT_MAX_BODY_SIZE: bytes (default: 5242880)
//   - EXTRACT_MAX_REDIRECTS: integer (default: 5)
//   - EXTRACT_DENY_PRIVATE_IPS: bool (default: true)
//   - EXTRACT_RATE_PER_SECOND: integer, 0 = unlimited (default: 0)
//   - EXTRACT_SELECTORS_FILE: path to a YAML policy file
//   - EXTRACT_MIN_PARAGRAPH_LEN: integer (default: 20), applied after the file
//
// Invalid tunables fall back to defaults with a warning. An unreadable selectors file is an error.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	var results []namedResult

	cfg.UserAgent = pkgconfig.LoadEnvString("EXTRACT_USER_AGENT", cfg.UserAgent)

	r := pkgconfig.LoadEnvDuration("EXTRACT_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	cfg.Timeout = r.Value.(time.Duration)
	results = append(results, namedResult{"EXTRACT_TIMEOUT", r})

	r = pkgconfig.LoadEnvInt("EXTRACT_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1024, 100*1024*1024)
	})
	cfg.MaxBodySize = int64(r.Value.(int))
	results = append(results, namedResult{"EXTRACT_MAX_BODY_SIZE", r})

	r = pkgconfig.LoadEnvInt("EXTRACT_MAX_REDIRECTS", cfg.MaxRedirects, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 10)
	})
	cfg.MaxRedirects = r.Value.(int)
	results = append(results, namedResult{"EXTRACT_MAX_REDIRECTS", r})

	r = pkgconfig.LoadEnvBool("EXTRACT_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	cfg.DenyPrivateIPs = r.Value.(bool)
	results = append(results, namedResult{"EXTRACT_DENY_PRIVATE_IPS", r})

	r = pkgconfig.LoadEnvInt("EXTRACT_RATE_PER_SECOND", cfg.RatePerSecond, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 1000)
	})
	cfg.RatePerSecond = r.Value.(int)
	results = append(results, namedResult{"EXTRACT_RATE_PER_SECOND", r})

	if path := os.Getenv("EXTRACT_SELECTORS_FILE"); path != "" {
		policy, err := LoadPolicyFile(path)
		if err != nil {
			return cfg, err
		}
		cfg.Policy = policy
	}

	r = pkgconfig.LoadEnvInt("EXTRACT_MIN_PARAGRAPH_LEN", cfg.Policy.MinParagraphLength, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 10000)
	})
	cfg.Policy.MinParagraphLength = r.Value.(int)
	results = append(results, namedResult{"EXTRACT_MIN_PARAGRAPH_LEN", r})

	for _, nr := range results {
		nr.result.LogWarnings(nil, "extractor configuration fallback", nr.name)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

type namedResult struct {
	name   string
	result pkgconfig.ConfigLoadResult
}
