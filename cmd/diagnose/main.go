// Package main runs the feed and content extraction without storing anything,
// reporting which strategy matched each article page.
// Usage: infopulse-diagnose [--limit N] [--output json] [url ...]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"infopulse/internal/domain/entity"
	"infopulse/internal/infra/extractor"
	"infopulse/internal/infra/feed"
	"infopulse/internal/observability/logging"
	"infopulse/internal/usecase/ingest"
	"infopulse/internal/utils/text"
)

// PageDiagnostic is the result for one article URL.
type PageDiagnostic struct {
	Title         string `json:"title,omitempty"`
	URL           string `json:"url"`
	Status        string `json:"status"` // OK, INVALID, NO_CONTENT, FETCH_FAILED
	Strategy      string `json:"strategy"`
	ContentLength int    `json:"content_length"`
	Preview       string `json:"preview,omitempty"`
	ResponseTime  int64  `json:"response_time_ms"`
}

// Report is the full diagnostic output.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	SourceError string           `json:"source_error,omitempty"`
	Pages       []PageDiagnostic `json:"pages"`
	Strategies  map[string]int   `json:"strategies"`
}

const previewRunes = 120

func main() {
	var (
		limit        int
		outputFormat string
		timeout      time.Duration
	)

	flag.IntVar(&limit, "limit", 10, "Maximum number of feed references to extract (0 = all)")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: failed to load .env: %v\n", err)
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	cfg, err := extractor.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid extractor configuration: %v\n", err)
		os.Exit(1)
	}
	ex := extractor.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		refs      []entity.ArticleReference
		sourceErr error
	)
	if urls := flag.Args(); len(urls) > 0 {
		for _, u := range urls {
			refs = append(refs, entity.ArticleReference{URL: u})
		}
	} else {
		refs, sourceErr = fetchReferences(ctx, logger)
		if limit > 0 && len(refs) > limit {
			refs = refs[:limit]
		}
	}

	report := diagnose(ctx, ex, refs, logger)
	if sourceErr != nil {
		report.SourceError = sourceErr.Error()
	}

	if outputFormat == "json" {
		err = writeJSON(os.Stdout, report)
	} else {
		err = writeText(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write report: %v\n", err)
		os.Exit(1)
	}
	if sourceErr != nil {
		os.Exit(2)
	}
}

// fetchReferences selects the source exactly as the worker does.
func fetchReferences(ctx context.Context, logger *slog.Logger) ([]entity.ArticleReference, error) {
	source, err := feed.NewSourceFromEnv(logger, nil)
	if err != nil {
		return nil, err
	}
	return source.FetchLatest(ctx, ingest.LoadConfigFromEnv().Region)
}

// diagnose extracts every reference sequentially, in feed order.
func diagnose(ctx context.Context, ex ingest.ContentExtractor, refs []entity.ArticleReference, logger *slog.Logger) Report {
	report := Report{
		GeneratedAt: time.Now().UTC(),
		Pages:       make([]PageDiagnostic, 0, len(refs)),
		Strategies:  map[string]int{},
	}

	for i, ref := range refs {
		diag := PageDiagnostic{Title: ref.Title, URL: ref.URL}
		if err := entity.ValidateURL(ref.URL); err != nil {
			diag.Status = "INVALID"
			diag.Preview = err.Error()
			report.Pages = append(report.Pages, diag)
			continue
		}

		logger.Info("extracting", slog.Int("n", i+1), slog.Int("total", len(refs)), slog.String("url", ref.URL))
		start := time.Now()
		res := ex.Extract(ctx, ref.URL)
		diag.ResponseTime = time.Since(start).Milliseconds()
		diag.Strategy = res.Strategy

		switch res.Strategy {
		case ingest.StrategyNoContent:
			diag.Status = "NO_CONTENT"
		case ingest.StrategyFetchFailed:
			diag.Status = "FETCH_FAILED"
		default:
			diag.Status = "OK"
			diag.ContentLength = text.CountRunes(res.Content)
			diag.Preview = preview(res.Content)
		}
		report.Strategies[res.Strategy]++
		report.Pages = append(report.Pages, diag)
	}
	return report
}

func preview(s string) string {
	return text.Truncate(s, previewRunes)
}

func writeJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeText(w io.Writer, report Report) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("Extraction Diagnostic Report\n")
	printf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	if report.SourceError != "" {
		printf("Feed error: %s\n\n", report.SourceError)
	}

	for i, p := range report.Pages {
		printf("%d. [%s] %s\n", i+1, p.Status, p.URL)
		if p.Title != "" {
			printf("   Title: %s\n", p.Title)
		}
		if p.Strategy != "" {
			printf("   Strategy: %s (%d chars, %dms)\n", p.Strategy, p.ContentLength, p.ResponseTime)
		}
		if p.Preview != "" {
			printf("   %s\n", p.Preview)
		}
	}

	if len(report.Strategies) > 0 {
		names := make([]string, 0, len(report.Strategies))
		for name := range report.Strategies {
			names = append(names, name)
		}
		sort.Strings(names)

		printf("\nStrategies:\n")
		for _, name := range names {
			printf("  %-32s %d\n", name, report.Strategies[name])
		}
	}
	return err
}
