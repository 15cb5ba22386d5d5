package ingest

import (
	"log/slog"
	"time"
)

// Status is the per-article outcome of a run.
type Status string

const (
	StatusNew       Status = "new"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

// Outcome records what happened to one feed reference.
type Outcome struct {
	URL       string
	Title     string
	Status    Status
	Strategy  string
	ArticleID int64
	Err       error

	// Placeholder is set when the stored content is an extraction sentinel.
	Placeholder bool
}

// RunReport summarizes one ingestion run.
//
// Fetched == New + Duplicate + Error for every completed run. A run whose feed
// fetch failed has all counters at zero and SourceError set; a coalesced
// trigger has Skipped set and nothing else.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched   int
	New       int
	Duplicate int
	Error     int

	// Placeholder counts new articles stored with sentinel content.
	Placeholder int

	Skipped     bool
	SourceError error

	// Strategies counts extracted articles per matching strategy.
	Strategies map[string]int
	Outcomes   []Outcome
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// LogValue implements slog.LogValuer.
func (r RunReport) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.Int("fetched", r.Fetched),
		slog.Int("new", r.New),
		slog.Int("duplicate", r.Duplicate),
		slog.Int("error", r.Error),
		slog.Duration("duration", r.Duration()),
	}
	if r.Placeholder > 0 {
		attrs = append(attrs, slog.Int("placeholder", r.Placeholder))
	}
	if r.Skipped {
		attrs = append(attrs, slog.Bool("skipped", true))
	}
	if r.SourceError != nil {
		attrs = append(attrs, slog.String("source_error", r.SourceError.Error()))
	}
	if len(r.Strategies) > 0 {
		attrs = append(attrs, slog.Any("strategies", r.Strategies))
	}
	return slog.GroupValue(attrs...)
}

func (r *RunReport) tally() {
	r.New, r.Duplicate, r.Error, r.Placeholder = 0, 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusNew:
			r.New++
			if o.Placeholder {
				r.Placeholder++
			}
		case StatusDuplicate:
			r.Duplicate++
		default:
			r.Error++
		}
		if o.Strategy != "" {
			r.Strategies[o.Strategy]++
		}
	}
}
