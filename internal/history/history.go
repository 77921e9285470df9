package history

import (
	"context"
	"time"

	"github.com/docstack/veristack/internal/report"
)

// ProbeRecord is one probe outcome as persisted to external systems.
type ProbeRecord struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Run summarizes one finished verification run.
type Run struct {
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	Probes      []ProbeRecord `json:"probes"`
}

// FromReport converts a built report into a persistable run.
func FromReport(started time.Time, rep report.Report) Run {
	run := Run{
		StartedAt:   started.UTC(),
		FinishedAt:  rep.GeneratedAt,
		Total:       rep.Total,
		Passed:      rep.Passed,
		Failed:      rep.Failed,
		SuccessRate: rep.SuccessRate,
	}
	for _, res := range rep.Results {
		run.Probes = append(run.Probes, ProbeRecord{
			Name:       res.Name,
			Success:    res.Success,
			Message:    res.Message,
			DurationMS: float64(res.Duration.Microseconds()) / 1000,
		})
	}
	return run
}

// Sink is a destination for verification runs (audit/analytics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, run Run) error
	Close() error
}
