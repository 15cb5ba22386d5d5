// Package scraper provides the RSS/Atom implementation of ingest.SourceClient.
// It uses the gofeed library to parse feed content with reliability patterns.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"infopulse/internal/domain/entity"
	"infopulse/internal/observability/metrics"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/resilience/retry"
	"infopulse/internal/usecase/ingest"

	"github.com/mmcdole/gofeed"
)

const rssKind = "rss"

// RSSSource implements ingest.SourceClient over a single RSS or Atom feed URL.
// It includes circuit breaker and retry logic for improved reliability.
type RSSSource struct {
	feedURL        string
	userAgent      string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSSource creates an RSSSource reading feedURL with the given HTTP client.
// It automatically configures circuit breaker and retry logic.
func NewRSSSource(feedURL, userAgent string, client *http.Client) *RSSSource {
	if userAgent == "" {
		userAgent = "InfoPulseBot/1.0"
	}
	return &RSSSource{
		feedURL:        feedURL,
		userAgent:      userAgent,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.NewsFeedConfig()),
		retryConfig:    retry.NewsFeedConfig(),
	}
}

// WithCircuitBreaker replaces the default news-feed breaker.
func (f *RSSSource) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *RSSSource {
	f.circuitBreaker = cb
	return f
}

// WithRetryConfig overrides the retry policy. It is meant for tests.
func (f *RSSSource) WithRetryConfig(cfg retry.Config) *RSSSource {
	f.retryConfig = cfg
	return f
}

// Timeout is the per-request limit of the HTTP client, zero when unbounded.
func (f *RSSSource) Timeout() time.Duration {
	if f.client == nil {
		return 0
	}
	return f.client.Timeout
}

var _ ingest.SourceClient = (*RSSSource)(nil)

// FetchLatest retrieves and parses the feed. Feeds carry no region, so region is ignored.
func (f *RSSSource) FetchLatest(ctx context.Context, _ string) ([]entity.ArticleReference, error) {
	start := time.Now()
	var refs []entity.ArticleReference

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		return f.circuitBreaker.Run(func() error {
			var err error
			refs, err = f.doFetch(ctx)
			return err
		})
	})
	if retryErr != nil {
		errorType := "network"
		if circuitbreaker.IsRejected(retryErr) {
			errorType = "circuit_open"
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("service", f.circuitBreaker.Name()),
				slog.String("url", f.feedURL),
				slog.String("state", f.circuitBreaker.State().String()))
		}
		metrics.RecordFeedFetchError(rssKind, errorType, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ingest.ErrSourceUnavailable, retryErr)
	}

	metrics.RecordFeedFetch(rssKind, time.Since(start), len(refs))
	return refs, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSSource) doFetch(ctx context.Context) ([]entity.ArticleReference, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		// map to the retry package's type so 5xx and 429 are retried
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, err
	}

	refs := make([]entity.ArticleReference, 0, len(feed.Items))
	for _, it := range feed.Items {
		var pubAt time.Time
		switch {
		case it.PublishedParsed != nil:
			pubAt = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			pubAt = *it.UpdatedParsed
		}

		ref := entity.ArticleReference{
			Title:       strings.TrimSpace(it.Title),
			URL:         strings.TrimSpace(it.Link),
			PublishedAt: pubAt,
			SourceName:  feed.Title,
			Description: it.Description,
		}
		if it.Author != nil {
			ref.Author = it.Author.Name
		}
		if it.Image != nil {
			ref.ImageURL = it.Image.URL
		}
		if len(it.Categories) > 0 {
			ref.Category = it.Categories[0]
		}
		refs = append(refs, ref)
	}

	return refs, nil
}
