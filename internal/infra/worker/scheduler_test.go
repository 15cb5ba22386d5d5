package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"infopulse/internal/usecase/ingest"
)

type runnerFunc func(ctx context.Context) ingest.RunReport

func (f runnerFunc) Run(ctx context.Context) ingest.RunReport { return f(ctx) }

// blockingRunner holds each run until release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context) ingest.RunReport {
	r.calls.Add(1)
	r.started <- struct{}{}
	<-r.release
	return ingest.RunReport{RunID: "blocked", Fetched: 1, New: 1}
}

func testConfig() *WorkerConfig {
	cfg := DefaultConfig()
	cfg.Interval = 24 * time.Hour
	cfg.RunOnStart = false
	return &cfg
}

func newTestScheduler(t *testing.T, r Runner, cfg *WorkerConfig) (*Scheduler, *WorkerMetrics) {
	t.Helper()
	m, _ := isolatedMetrics(t)
	s, err := NewScheduler(r, cfg, m, discardLogger())
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s, m
}

func waitStarted(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not start")
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CronSchedule = "not a schedule"
	m, _ := isolatedMetrics(t)

	if _, err := NewScheduler(runnerFunc(func(context.Context) ingest.RunReport { return ingest.RunReport{} }), cfg, m, discardLogger()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_Trigger_CoalescesOverlappingRuns(t *testing.T) {
	runner := newBlockingRunner()
	s, m := newTestScheduler(t, runner, testConfig())

	first := make(chan ingest.RunReport, 1)
	go func() { first <- s.Trigger(context.Background()) }()
	waitStarted(t, runner.started)

	if !s.Running() {
		t.Error("Running() = false during an active run")
	}

	skipped := s.Trigger(context.Background())
	if !skipped.Skipped {
		t.Fatalf("second trigger: Skipped = false, want true")
	}
	if skipped.Fetched != 0 || skipped.New != 0 {
		t.Errorf("skipped report carries counters: %+v", skipped)
	}

	close(runner.release)
	report := <-first
	if report.Skipped || report.New != 1 {
		t.Errorf("first trigger report = %+v", report)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner called %d times, want 1", got)
	}
	if got := testutil.ToFloat64(m.JobRunsTotal.WithLabelValues(JobSkipped)); got != 1 {
		t.Errorf("skipped runs = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.JobRunsTotal.WithLabelValues(JobCompleted)); got != 1 {
		t.Errorf("completed runs = %f, want 1", got)
	}
	if s.Running() {
		t.Error("Running() = true after run finished")
	}

	// Idle again: the next trigger runs.
	runner.release = make(chan struct{})
	close(runner.release)
	if r := s.Trigger(context.Background()); r.Skipped {
		t.Error("trigger after completion was skipped")
	}
}

func TestScheduler_Trigger_SourceErrorDoesNotStopSchedule(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) ingest.RunReport {
		if calls.Add(1) == 1 {
			return ingest.RunReport{RunID: "r1", SourceError: ingest.ErrSourceUnavailable}
		}
		return ingest.RunReport{RunID: "r2", Fetched: 3, New: 2, Duplicate: 1}
	})
	s, m := newTestScheduler(t, runner, testConfig())

	r1 := s.Trigger(context.Background())
	if !errors.Is(r1.SourceError, ingest.ErrSourceUnavailable) {
		t.Fatalf("first run SourceError = %v", r1.SourceError)
	}
	r2 := s.Trigger(context.Background())
	if r2.SourceError != nil || r2.New != 2 {
		t.Fatalf("second run = %+v", r2)
	}

	if got := testutil.ToFloat64(m.JobRunsTotal.WithLabelValues(JobSourceError)); got != 1 {
		t.Errorf("source_error runs = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.JobArticlesStoredTotal); got != 2 {
		t.Errorf("articles stored = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.JobLastSuccessTimestamp); got == 0 {
		t.Error("last success timestamp not set")
	}

	last, ok := s.LastReport()
	if !ok || last.RunID != "r2" {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestScheduler_Trigger_RecoversPanic(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) ingest.RunReport {
		if calls.Add(1) == 1 {
			panic("nil map")
		}
		return ingest.RunReport{RunID: "ok"}
	})
	s, m := newTestScheduler(t, runner, testConfig())

	report := s.Trigger(context.Background())
	if !errors.Is(report.SourceError, errRunPanicked) {
		t.Fatalf("SourceError = %v, want errRunPanicked", report.SourceError)
	}
	if s.Running() {
		t.Fatal("running flag not released after panic")
	}
	if got := testutil.ToFloat64(m.JobRunsTotal.WithLabelValues(JobPanic)); got != 1 {
		t.Errorf("panic runs = %f, want 1", got)
	}

	if r := s.Trigger(context.Background()); r.RunID != "ok" {
		t.Errorf("run after panic = %+v", r)
	}
}

func TestScheduler_LastReport(t *testing.T) {
	runner := newBlockingRunner()
	s, _ := newTestScheduler(t, runner, testConfig())

	if _, ok := s.LastReport(); ok {
		t.Fatal("LastReport() ok before any run")
	}

	done := make(chan struct{})
	go func() {
		s.Trigger(context.Background())
		close(done)
	}()
	waitStarted(t, runner.started)

	// A skipped trigger never replaces the last report.
	s.Trigger(context.Background())
	if _, ok := s.LastReport(); ok {
		t.Error("skipped trigger produced a last report")
	}

	close(runner.release)
	<-done
	last, ok := s.LastReport()
	if !ok || last.RunID != "blocked" {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestScheduler_Start_RunsOnStart(t *testing.T) {
	ran := make(chan context.Context, 1)
	runner := runnerFunc(func(ctx context.Context) ingest.RunReport {
		ran <- ctx
		return ingest.RunReport{RunID: "eager"}
	})
	cfg := testConfig()
	cfg.RunOnStart = true
	s, _ := newTestScheduler(t, runner, cfg)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "base")
	s.Start(ctx)

	select {
	case got := <-ran:
		if got.Value(key{}) != "base" {
			t.Error("eager run did not inherit the start context")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("eager run did not happen")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if last, ok := s.LastReport(); !ok || last.RunID != "eager" {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestScheduler_Start_WithoutRunOnStart(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) ingest.RunReport {
		calls.Add(1)
		return ingest.RunReport{}
	})
	s, _ := newTestScheduler(t, runner, testConfig())

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("runner called %d times, want 0", got)
	}
}

func TestScheduler_Stop_WaitsForActiveRun(t *testing.T) {
	runner := newBlockingRunner()
	cfg := testConfig()
	cfg.RunOnStart = true
	s, _ := newTestScheduler(t, runner, cfg)

	s.Start(context.Background())
	waitStarted(t, runner.started)

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Stop(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() with active run = %v, want deadline exceeded", err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop() returned while a run was still active")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return after the run finished")
	}
}
