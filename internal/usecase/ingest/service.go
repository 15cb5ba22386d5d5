package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"infopulse/internal/domain/entity"
	"infopulse/internal/observability/logging"
	"infopulse/internal/observability/metrics"
	"infopulse/internal/observability/tracing"
	"infopulse/internal/repository"
)

// Service runs the ingestion pipeline once per call to Run.
// It holds no per-run state, so concurrent Run calls are safe; coalescing
// overlapping triggers is the scheduler's job.
type Service struct {
	Source     SourceClient
	Extractor  ContentExtractor
	Store      repository.ArticleRepository
	Publisher  Publisher
	Normalizer *Normalizer
	cfg        Config
}

// NewService wires the pipeline. A nil publisher disables downstream events.
//
// Example:
//
//	svc := ingest.NewService(feed, extractor, store, publisher, ingest.LoadConfigFromEnv())
//	report := svc.Run(ctx)
func NewService(
	source SourceClient,
	extractor ContentExtractor,
	store repository.ArticleRepository,
	publisher Publisher,
	cfg Config,
) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	defaults := DefaultConfig()
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	return &Service{
		Source:     source,
		Extractor:  extractor,
		Store:      store,
		Publisher:  publisher,
		Normalizer: NewNormalizer(nil),
		cfg:        cfg,
	}
}

// Run performs one full ingestion pass and returns its report.
//
// Per reference: validate → claim/dedupe → extract → normalize → create → publish.
// A failing reference is recorded as an error outcome and never aborts the batch.
// A failing feed yields a report with zero counters and SourceError set.
func (s *Service) Run(ctx context.Context) RunReport {
	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.WithRunID(ctx, logging.FromContext(ctx))

	ctx, span := tracing.GetTracer().Start(ctx, "ingest.run")
	defer span.End()
	span.SetAttributes(attribute.String("ingest.run_id", runID))

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	report := RunReport{
		RunID:      runID,
		StartedAt:  time.Now(),
		Strategies: map[string]int{},
	}
	logger.Info("ingestion run started", slog.String("region", s.cfg.Region))

	refs, err := s.Source.FetchLatest(ctx, s.cfg.Region)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		report.SourceError = err
		report.FinishedAt = time.Now()
		tracing.Fail(span, err, "source unavailable")
		metrics.RecordRun(metrics.RunSourceError, report.Duration(), 0, 0, 0)
		logger.Warn("ingestion run found no references, feed fetch failed",
			slog.Any("error", err),
			slog.Any("report", report))
		return report
	}

	report.Fetched = len(refs)
	report.Outcomes = make([]Outcome, len(refs))
	filter := NewDuplicateFilter(s.Store)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			report.Outcomes[i] = s.processReference(ctx, logger, filter, ref)
			return nil
		})
	}
	_ = g.Wait()

	report.tally()
	report.FinishedAt = time.Now()

	for _, o := range report.Outcomes {
		metrics.RecordArticleOutcome(string(o.Status))
	}
	metrics.RecordRun(metrics.RunCompleted, report.Duration(), report.New, report.Duplicate, report.Error)
	span.SetAttributes(
		attribute.Int("ingest.fetched", report.Fetched),
		attribute.Int("ingest.new", report.New),
		attribute.Int("ingest.duplicate", report.Duplicate),
		attribute.Int("ingest.error", report.Error),
	)

	logger.Info("ingestion run completed", slog.Any("report", report))
	return report
}

// processReference handles one reference. It never panics outward.
func (s *Service) processReference(
	ctx context.Context,
	logger *slog.Logger,
	filter *DuplicateFilter,
	ref entity.ArticleReference,
) (out Outcome) {
	out = Outcome{URL: ref.URL, Title: ref.Title}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusError
			out.Err = fmt.Errorf("panic while processing article: %v", r)
			logger.Error("recovered panic in article processing",
				slog.String("url", ref.URL),
				slog.Any("panic", r))
		}
	}()

	fail := func(err error) Outcome {
		out.Status = StatusError
		out.Err = err
		logger.Warn("article failed",
			slog.String("url", ref.URL),
			slog.String("title", ref.Title),
			slog.Any("error", err))
		return out
	}

	if err := entity.ValidateReference(ref); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidReference, err))
	}

	if !filter.Claim(ref.URL) {
		out.Status = StatusDuplicate
		return out
	}

	dup, err := s.isDuplicate(ctx, filter, ref.URL)
	if err != nil {
		return fail(fmt.Errorf("%w: find by url: %w", ErrStorageUnavailable, err))
	}
	if dup {
		out.Status = StatusDuplicate
		return out
	}

	extraction := s.Extractor.Extract(ctx, ref.URL)
	out.Strategy = extraction.Strategy

	article, err := s.Normalizer.Normalize(ref, extraction.Content)
	if err != nil {
		return fail(err)
	}

	if err := s.create(ctx, article); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			out.Status = StatusDuplicate
			return out
		}
		return fail(fmt.Errorf("%w: create: %w", ErrStorageUnavailable, err))
	}

	out.Status = StatusNew
	out.ArticleID = article.ID
	out.Placeholder = entity.IsSentinelContent(article.Content)
	logger.Debug("article stored",
		slog.Int64("id", article.ID),
		slog.String("url", article.URL),
		slog.String("strategy", extraction.Strategy),
		slog.Bool("placeholder", out.Placeholder),
		slog.String("category", ref.Category))

	s.publish(ctx, logger, article)
	return out
}

func (s *Service) isDuplicate(ctx context.Context, filter *DuplicateFilter, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	dup, err := filter.IsDuplicate(ctx, url)
	metrics.RecordStoreOperation("find_by_url", time.Since(start))
	return dup, err
}

func (s *Service) create(ctx context.Context, article *entity.Article) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	err := s.Store.Create(ctx, article)
	metrics.RecordStoreOperation("create", time.Since(start))
	return err
}

// publish is best effort: a lost event never turns a stored article into an error.
func (s *Service) publish(ctx context.Context, logger *slog.Logger, article *entity.Article) {
	if _, noop := s.Publisher.(NoopPublisher); noop {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.Publisher.PublishIngested(ctx, article); err != nil {
		metrics.RecordEventPublished(false)
		logger.Warn("failed to publish ingested article",
			slog.Int64("id", article.ID),
			slog.String("url", article.URL),
			slog.Any("error", err))
		return
	}
	metrics.RecordEventPublished(true)
}
