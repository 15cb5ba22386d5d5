package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infopulse/internal/usecase/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetMetricsPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"default", "", 9090},
		{"custom", "9200", 9200},
		{"not a number", "abc", 9090},
		{"out of range", "70000", 9090},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("METRICS_PORT", tt.value)
			assert.Equal(t, tt.want, getMetricsPort(testLogger()))
		})
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestMetricsMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	stored := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_articles_stored_total", Help: "test"})
	reg.MustRegister(stored)
	stored.Add(3)
	mux := metricsMux(reg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_articles_stored_total 3")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInitStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		store, breaker, closeFn, err := initStore(context.Background(), testLogger())
		require.NoError(t, err)
		defer closeFn()
		assert.NotNil(t, store)
		assert.Nil(t, breaker)
	})

	t.Run("postgres without DATABASE_URL", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, _, _, err := initStore(context.Background(), testLogger())
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "floppy")
		_, _, _, err := initStore(context.Background(), testLogger())
		require.Error(t, err)
	})
}

func TestInitPublisher_DisabledWithoutRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	pub, closeFn, err := initPublisher(context.Background(), testLogger())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, ingest.NoopPublisher{}, pub)
}
