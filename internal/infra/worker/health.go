package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/usecase/ingest"
)

// ReportProvider exposes the most recent ingestion run. *Scheduler implements it.
type ReportProvider interface {
	LastReport() (ingest.RunReport, bool)
	Running() bool
}

// HealthServer provides HTTP endpoints for health checks.
//   - /health: liveness, always 200
//   - /health/ready: 200 once SetReady(true) was called, 503 otherwise
//   - /health/last-run: summary of the most recent run, 404 before the first one
//   - /health/breakers: state of the registered circuit breakers, 503 if any is open
type HealthServer struct {
	addr     string
	logger   *slog.Logger
	isReady  *atomic.Bool
	server   *http.Server
	reports  ReportProvider
	breakers []*circuitbreaker.CircuitBreaker
}

type healthResponse struct {
	Status string `json:"status"`
}

type lastRunResponse struct {
	RunID       string         `json:"run_id"`
	Running     bool           `json:"running"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	DurationMS  int64          `json:"duration_ms"`
	Fetched     int            `json:"fetched"`
	New         int            `json:"new"`
	Duplicate   int            `json:"duplicate"`
	Error       int            `json:"error"`
	Placeholder int            `json:"placeholder_content"`
	SourceError string         `json:"source_error,omitempty"`
	Strategies  map[string]int `json:"strategies,omitempty"`
}

type breakerStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Open  bool   `json:"open"`
}

type breakersResponse struct {
	Healthy  bool            `json:"healthy"`
	Breakers []breakerStatus `json:"breakers"`
}

// NewHealthServer creates a new health check server. Call Start to serve.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false)

	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: isReady,
	}
}

// WithReports enables /health/last-run.
func (h *HealthServer) WithReports(p ReportProvider) *HealthServer {
	h.reports = p
	return h
}

// WithBreakers registers circuit breakers reported on /health/breakers.
func (h *HealthServer) WithBreakers(cbs ...*circuitbreaker.CircuitBreaker) *HealthServer {
	for _, cb := range cbs {
		if cb != nil {
			h.breakers = append(h.breakers, cb)
		}
	}
	return h
}

// Handler returns the router serving all health endpoints.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/last-run", h.handleLastRun)
	mux.HandleFunc("/health/breakers", h.handleBreakers)
	return mux
}

// Start serves until ctx is cancelled, then shuts down with a 5-second timeout.
// It returns http.ErrServerClosed on graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "scheduler not configured"})
		return
	}

	report, ok := h.reports.LastReport()
	if !ok {
		status := "no run yet"
		if h.reports.Running() {
			status = "first run in progress"
		}
		h.writeJSON(w, http.StatusNotFound, healthResponse{Status: status})
		return
	}

	resp := lastRunResponse{
		RunID:       report.RunID,
		Running:     h.reports.Running(),
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		DurationMS:  report.Duration().Milliseconds(),
		Fetched:     report.Fetched,
		New:         report.New,
		Duplicate:   report.Duplicate,
		Error:       report.Error,
		Placeholder: report.Placeholder,
		Strategies:  report.Strategies,
	}
	if report.SourceError != nil {
		resp.SourceError = report.SourceError.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HealthServer) handleBreakers(w http.ResponseWriter, r *http.Request) {
	resp := breakersResponse{Healthy: true, Breakers: make([]breakerStatus, 0, len(h.breakers))}
	for _, cb := range h.breakers {
		open := cb.IsOpen()
		resp.Breakers = append(resp.Breakers, breakerStatus{
			Name:  cb.Name(),
			State: cb.State().String(),
			Open:  open,
		})
		if open {
			resp.Healthy = false
		}
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
