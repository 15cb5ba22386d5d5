// Package newsapi implements ingest.SourceClient against a NewsAPI-compatible
// top-headlines endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"infopulse/internal/domain/entity"
	"infopulse/internal/observability/metrics"
	"infopulse/internal/observability/tracing"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/resilience/retry"
	"infopulse/internal/usecase/ingest"
)

const (
	kind = "newsapi"

	// maxBodySize bounds a decoded feed response.
	maxBodySize = 10 * 1024 * 1024

	// removedMarker is what NewsAPI puts in place of articles withdrawn by the publisher.
	removedMarker = "[Removed]"
)

// response mirrors the top-headlines payload.
type response struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Articles     []feedArticle `json:"articles"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
}

type feedArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Client fetches article references from the feed API.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryConfig replaces the default feed retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(cl *Client) { cl.retryConfig = cfg }
}

// WithCircuitBreaker replaces the default feed circuit breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(cl *Client) { cl.circuitBreaker = cb }
}

// NewClient builds a feed client. cfg should already be validated.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tracing.NewTransport(http.DefaultTransport),
		},
		circuitBreaker: circuitbreaker.New(circuitbreaker.NewsFeedConfig()),
		retryConfig:    retry.NewsFeedConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout is the per-request limit of the HTTP client.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

var _ ingest.SourceClient = (*Client)(nil)

// FetchLatest returns the latest references for region in feed order.
//
// With categories configured it issues one request per category, tags each
// reference with its category and fails only when every category fails.
func (c *Client) FetchLatest(ctx context.Context, region string) ([]entity.ArticleReference, error) {
	if len(c.cfg.Categories) == 0 {
		refs, err := c.fetch(ctx, region, "")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ingest.ErrSourceUnavailable, err)
		}
		return refs, nil
	}

	var (
		all  []entity.ArticleReference
		errs []error
	)
	for _, category := range c.cfg.Categories {
		refs, err := c.fetch(ctx, region, category)
		if err != nil {
			slog.Warn("feed category fetch failed",
				slog.String("category", category),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("category %s: %w", category, err))
			continue
		}
		all = append(all, refs...)
	}
	if len(errs) == len(c.cfg.Categories) {
		return nil, fmt.Errorf("%w: %w", ingest.ErrSourceUnavailable, errors.Join(errs...))
	}
	return all, nil
}

func (c *Client) fetch(ctx context.Context, region, category string) ([]entity.ArticleReference, error) {
	start := time.Now()
	var refs []entity.ArticleReference

	err := retry.WithBackoff(ctx, c.retryConfig, func() error {
		return c.circuitBreaker.Run(func() error {
			var err error
			refs, err = c.doFetch(ctx, region, category)
			return err
		})
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			slog.Warn("feed circuit breaker open, request rejected",
				slog.String("service", c.circuitBreaker.Name()),
				slog.String("state", c.circuitBreaker.State().String()))
		}
		metrics.RecordFeedFetchError(kind, classify(err), time.Since(start))
		return nil, err
	}

	metrics.RecordFeedFetch(kind, time.Since(start), len(refs))
	return refs, nil
}

// doFetch performs one request without retry or circuit breaker.
func (c *Client) doFetch(ctx context.Context, region, category string) ([]entity.ArticleReference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(region, category), nil)
	if err != nil {
		return nil, c.redact(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.redact(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var payload response
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && payload.Message != "" {
			msg = payload.Message
		}
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if decodeErr != nil {
		return nil, &DecodeError{Err: decodeErr}
	}
	if payload.Status == "error" {
		return nil, &APIError{Code: payload.Code, Message: payload.Message}
	}

	return toReferences(payload.Articles, category), nil
}

func (c *Client) requestURL(region, category string) string {
	q := url.Values{}
	if region != "" {
		q.Set(c.cfg.RegionParam, region)
	}
	if category != "" {
		q.Set("category", category)
	}
	if c.cfg.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	}
	q.Set(c.cfg.APIKeyParam, c.cfg.APIKey)

	sep := "?"
	if strings.Contains(c.cfg.BaseURL, "?") {
		sep = "&"
	}
	return c.cfg.BaseURL + sep + q.Encode()
}

// redact strips the API key from errors that echo the request URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if c.cfg.APIKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(c.cfg.APIKey), "REDACTED")
	redacted.URL = strings.ReplaceAll(redacted.URL, c.cfg.APIKey, "REDACTED")
	return &redacted
}

func toReferences(articles []feedArticle, category string) []entity.ArticleReference {
	refs := make([]entity.ArticleReference, 0, len(articles))
	for _, a := range articles {
		if a.Title == removedMarker {
			continue
		}
		var published time.Time
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				published = t
			}
		}
		refs = append(refs, entity.ArticleReference{
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: published,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			Description: a.Description,
			ImageURL:    a.URLToImage,
			Category:    category,
		})
	}
	return refs
}

// APIError is an error payload returned with a 2xx status.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed api error %s: %s", e.Code, e.Message)
}

// DecodeError reports a body that is not a feed payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode feed response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

func classify(err error) string {
	var (
		httpErr   *retry.HTTPError
		apiErr    *APIError
		decodeErr *DecodeError
	)
	switch {
	case circuitbreaker.IsRejected(err):
		return "circuit_open"
	case errors.As(err, &httpErr):
		return "status"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "network"
	}
}
