// Package extractor implements ingest.ContentExtractor: it downloads an article page
// and pulls its body text out with an ordered list of structural selectors, falling
// back to filtered paragraphs.
package extractor

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"infopulse/internal/domain/entity"
	"infopulse/internal/observability/metrics"
	"infopulse/internal/observability/tracing"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/usecase/ingest"
	"infopulse/internal/utils/text"
)

// Extractor is safe for concurrent use.
type Extractor struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	limiter        *rate.Limiter
	config         Config
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithCircuitBreaker replaces the default content-extractor breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(e *Extractor) { e.circuitBreaker = cb }
}

// New builds an Extractor. config should already be validated.
func New(config Config, opts ...Option) *Extractor {
	e := &Extractor{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentExtractorConfig()),
		config:         config,
	}
	if config.RatePerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RatePerSecond)
	}

	e.client = &http.Client{
		Timeout: config.Timeout,
		Transport: tracing.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		}),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= e.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), e.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ingest.ContentExtractor = (*Extractor)(nil)

// Extract never fails: any fetch or parse problem yields entity.ContentFetchFailed
// and an empty page yields entity.ContentNotFound.
func (e *Extractor) Extract(ctx context.Context, url string) ingest.Extraction {
	start := time.Now()
	ctx, span := tracing.GetTracer().Start(ctx, "extract.article",
		trace.WithAttributes(attribute.String("url.full", url)))
	defer span.End()

	res := e.extract(ctx, url)

	span.SetAttributes(attribute.String("extract.strategy", res.Strategy))
	metrics.RecordExtraction(res.Strategy, time.Since(start), len(res.Content))
	return res
}

func (e *Extractor) extract(ctx context.Context, url string) ingest.Extraction {
	body, err := e.fetchPage(ctx, url)
	if err != nil {
		slog.Warn("article fetch failed",
			slog.String("url", url),
			slog.Any("error", err))
		return fetchFailed()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Warn("article parse failed",
			slog.String("url", url),
			slog.Any("error", err))
		return fetchFailed()
	}

	content, strategy := ExtractText(doc, e.config.Policy)
	if content == "" {
		slog.Debug("no article content found", slog.String("url", url))
		return ingest.Extraction{Content: entity.ContentNotFound, Strategy: ingest.StrategyNoContent}
	}
	return ingest.Extraction{Content: content, Strategy: strategy}
}

func fetchFailed() ingest.Extraction {
	return ingest.Extraction{Content: entity.ContentFetchFailed, Strategy: ingest.StrategyFetchFailed}
}

// fetchPage validates the URL, waits for the rate limiter and fetches through the breaker.
// Only transport errors and 5xx count against the breaker; a 404 on one site says
// nothing about the others.
func (e *Extractor) fetchPage(ctx context.Context, url string) ([]byte, error) {
	if err := validateURL(url, e.config.DenyPrivateIPs); err != nil {
		return nil, err
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var (
		body      []byte
		statusErr error
	)
	err := e.circuitBreaker.Run(func() error {
		b, status, err := e.doFetch(ctx, url)
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			statusErr = fmt.Errorf("%w: HTTP %d", ErrStatus, status)
			if status >= 500 {
				return statusErr
			}
			return nil
		}
		body = b
		return nil
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			slog.Warn("content extractor circuit breaker open, request rejected",
				slog.String("service", e.circuitBreaker.Name()),
				slog.String("url", url),
				slog.String("state", e.circuitBreaker.State().String()))
		}
		return nil, err
	}
	if statusErr != nil {
		return nil, statusErr
	}
	return body, nil
}

// doFetch performs the HTTP request and reads the body within MaxBodySize.
func (e *Extractor) doFetch(ctx context.Context, url string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", e.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w: request exceeded %v", ErrTimeout, e.config.Timeout)
		}
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodySize+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > e.config.MaxBodySize {
		return nil, resp.StatusCode, fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, e.config.MaxBodySize)
	}
	return body, resp.StatusCode, nil
}

// ExtractText applies policy to a parsed page and returns the cleaned text and the
// strategy that produced it. Content is empty when nothing usable was found.
func ExtractText(doc *goquery.Document, policy Policy) (content, strategy string) {
	for _, selector := range policy.Selectors {
		if txt := strings.TrimSpace(doc.Find(selector).Text()); txt != "" {
			return text.CollapseWhitespace(txt), selector
		}
	}

	excluded := excludedSelector(policy.ExcludedClasses)
	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if excluded != "" && p.Closest(excluded).Length() > 0 {
			return
		}
		txt := strings.TrimSpace(p.Text())
		if text.CountRunes(txt) > policy.MinParagraphLength {
			paragraphs = append(paragraphs, txt)
		}
	})

	content = text.CollapseWhitespace(strings.Join(paragraphs, "\n\n"))
	if content == "" {
		return "", ""
	}
	return content, ingest.StrategyParagraphFallback
}

// excludedSelector turns class names into ".a, .b".
func excludedSelector(classes []string) string {
	parts := make([]string, 0, len(classes))
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, "."+c)
		}
	}
	return strings.Join(parts, ", ")
}
