package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"infopulse/internal/observability/metrics"
	"infopulse/internal/usecase/ingest"
)

// Runner performs one ingestion pass. *ingest.Service implements it.
type Runner interface {
	Run(ctx context.Context) ingest.RunReport
}

// Scheduler triggers Runner on a cron schedule and coalesces overlapping triggers:
// while a run is active any further trigger returns a Skipped report at once.
//
// Idle → Running → Idle. The cron goroutine only launches runs; a failing or
// panicking run never stops the schedule.
type Scheduler struct {
	runner  Runner
	cfg     *WorkerConfig
	metrics *WorkerMetrics
	logger  *slog.Logger
	cron    *cron.Cron

	running atomic.Bool
	wg      sync.WaitGroup

	mu      sync.RWMutex
	baseCtx context.Context
	last    *ingest.RunReport
}

// NewScheduler registers cfg.Schedule() with a new cron instance. It does not start it.
func NewScheduler(runner Runner, cfg *WorkerConfig, m *WorkerMetrics, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	s := &Scheduler{
		runner:  runner,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		baseCtx: context.Background(),
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger})),
	}

	if _, err := s.cron.AddFunc(cfg.Schedule(), s.onTick); err != nil {
		return nil, fmt.Errorf("add cron job %q: %w", cfg.Schedule(), err)
	}
	return s, nil
}

// Start starts the cron driver and, if configured, one eager run in the background.
// Runs inherit ctx; cancelling it aborts an active run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("schedule", s.cfg.Schedule()),
		slog.String("timezone", s.cfg.Timezone),
		slog.Bool("run_on_start", s.cfg.RunOnStart))

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Trigger(ctx)
		}()
	}
}

// Stop stops scheduling new runs and waits for active ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) onTick() {
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()

	s.wg.Add(1)
	defer s.wg.Done()
	s.Trigger(ctx)
}

// Trigger runs ingestion now unless a run is already active, in which case it
// returns immediately with a Skipped report.
func (s *Scheduler) Trigger(ctx context.Context) ingest.RunReport {
	if !s.running.CompareAndSwap(false, true) {
		now := time.Now()
		s.metrics.RecordJobRun(JobSkipped)
		metrics.RecordRun(metrics.RunSkipped, 0, 0, 0, 0)
		s.logger.Info("ingestion trigger skipped, previous run still active")
		return ingest.RunReport{StartedAt: now, FinishedAt: now, Skipped: true}
	}
	defer s.running.Store(false)

	start := time.Now()
	report, err := s.safeRun(ctx)
	s.metrics.RecordJobDuration(time.Since(start).Seconds())

	switch {
	case err != nil:
		s.metrics.RecordJobRun(JobPanic)
		s.logger.Error("ingestion run panicked", slog.Any("error", err))
		report = ingest.RunReport{StartedAt: start, FinishedAt: time.Now(), SourceError: err}
	case report.SourceError != nil:
		s.metrics.RecordJobRun(JobSourceError)
		s.logger.Warn("ingestion run ended without references, retrying next interval",
			slog.String("run_id", report.RunID),
			slog.Any("error", report.SourceError))
	default:
		s.metrics.RecordJobRun(JobCompleted)
		s.metrics.RecordArticlesStored(report.New)
		s.metrics.RecordLastSuccess()
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report
}

// safeRun shields the schedule from a panicking runner.
func (s *Scheduler) safeRun(ctx context.Context) (report ingest.RunReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errRunPanicked, r)
		}
	}()
	return s.runner.Run(ctx), nil
}

var errRunPanicked = errors.New("ingestion run panicked")

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the report of the most recent run that was not skipped.
func (s *Scheduler) LastReport() (ingest.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return ingest.RunReport{}, false
	}
	return *s.last, true
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
