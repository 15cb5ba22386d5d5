package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"

	"infopulse/internal/observability/metrics"
)

var errDown = errors.New("upstream down")

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      2,
		Interval:         10 * time.Second,
		Timeout:          80 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func fail() error { return errDown }

func TestNew_StartsClosed(t *testing.T) {
	cb := New(testConfig("feed-start"))

	if cb.Name() != "feed-start" {
		t.Errorf("Name() = %q", cb.Name())
	}
	if cb.State() != gobreaker.StateClosed || cb.IsOpen() {
		t.Errorf("State() = %v, want closed", cb.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("feed-start")); got != metrics.BreakerClosed {
		t.Errorf("state gauge = %v, want closed", got)
	}
}

func TestCircuitBreaker_ExecutePassesResultsThrough(t *testing.T) {
	cb := New(testConfig("passthrough"))

	v, err := cb.Execute(func() (interface{}, error) { return "refs", nil })
	if err != nil || v != "refs" {
		t.Fatalf("Execute() = %v, %v", v, err)
	}

	v, err = cb.Execute(func() (interface{}, error) { return nil, errDown })
	if err != errDown || v != nil {
		t.Fatalf("Execute() = %v, %v; want nil, errDown", v, err)
	}
}

func TestCircuitBreaker_TripsOnFailureRatio(t *testing.T) {
	cb := New(testConfig("ratio"))

	// 4 failures and 1 success: the ratio is only checked on failures
	for i := 0; i < 4; i++ {
		_ = cb.Run(fail)
	}
	_ = cb.Run(func() error { return nil })
	if cb.IsOpen() {
		t.Fatal("tripped before the next failure")
	}

	_ = cb.Run(fail) // 5/6 failed
	if !cb.IsOpen() {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	called := false
	err := cb.Run(func() error { called = true; return nil })
	if called {
		t.Error("fn ran while open")
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
}

func TestCircuitBreaker_BelowMinRequestsStaysClosed(t *testing.T) {
	cfg := testConfig("min-requests")
	cfg.MinRequests = 10
	cb := New(cfg)

	for i := 0; i < 9; i++ {
		if err := cb.Run(fail); err != errDown {
			t.Fatalf("request %d: err = %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("State() = %v, want closed below MinRequests", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	cb := New(testConfig("probe"))
	for i := 0; i < 5; i++ {
		_ = cb.Run(fail)
	}
	if !cb.IsOpen() {
		t.Fatal("expected open")
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("probe")); got != metrics.BreakerOpen {
		t.Errorf("state gauge = %v, want open", got)
	}

	time.Sleep(120 * time.Millisecond)
	if cb.State() != gobreaker.StateHalfOpen {
		t.Fatalf("State() = %v, want half-open after timeout", cb.State())
	}

	// MaxRequests is 2, so two successful probes close it
	for i := 0; i < 2; i++ {
		if err := cb.Run(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("State() = %v, want closed", cb.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerTransitionsTotal.WithLabelValues("probe", "closed")); got != 1 {
		t.Errorf("transitions to closed = %v, want 1", got)
	}
}

func TestCircuitBreaker_CanceledDoesNotTrip(t *testing.T) {
	cfg := testConfig("cancel")
	cfg.MinRequests = 1
	cb := New(cfg)

	for i := 0; i < 3; i++ {
		err := cb.Run(func() error { return fmt.Errorf("fetch: %w", context.Canceled) })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("State() = %v, want closed", cb.State())
	}
}

func TestIsRejected(t *testing.T) {
	cfg := testConfig("reject")
	cfg.MinRequests = 1
	cfg.Timeout = time.Minute
	cb := New(cfg)

	if err := cb.Run(fail); IsRejected(err) {
		t.Fatalf("IsRejected(%v) = true for the wrapped error", err)
	}
	if err := cb.Run(fail); !IsRejected(err) {
		t.Fatalf("IsRejected(%v) = false while open", err)
	}
	if !IsRejected(fmt.Errorf("feed: %w", gobreaker.ErrTooManyRequests)) {
		t.Error("ErrTooManyRequests must count as rejected")
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		cfg       Config
		name      string
		min       uint32
		threshold float64
	}{
		{DefaultConfig("x"), "x", 5, 0.6},
		{NewsFeedConfig(), "news-feed", 3, 0.7},
		{ContentExtractorConfig(), "content-extractor", 10, 0.8},
		{DBConfig(), "database", 5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Name != tt.name || tt.cfg.MinRequests != tt.min || tt.cfg.FailureThreshold != tt.threshold {
				t.Errorf("config = %+v", tt.cfg)
			}
			if tt.cfg.Timeout <= 0 || tt.cfg.MaxRequests == 0 {
				t.Errorf("config = %+v, want positive Timeout and MaxRequests", tt.cfg)
			}
		})
	}
}
