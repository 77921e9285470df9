package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/docstack/veristack/internal/metrics"
)

// maxMessageLen bounds how much failure detail a result carries.
const maxMessageLen = 256

// Probe is one black-box check against the running system.
type Probe struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result records one finished probe.
type Result struct {
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Runner executes probes strictly in order. A failing probe is recorded and
// the suite continues; Run errors never abort the run.
type Runner struct {
	Logger  *slog.Logger
	Timeout time.Duration // per-probe; 0 means no deadline
}

// RunSuite runs every probe in the order given and returns one Result per
// probe, in the same order.
func (r *Runner) RunSuite(ctx context.Context, probes []Probe) []Result {
	lg := r.Logger
	if lg == nil {
		lg = slog.Default()
	}
	results := make([]Result, 0, len(probes))
	for _, p := range probes {
		results = append(results, r.runOne(ctx, lg, p))
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, lg *slog.Logger, p Probe) Result {
	pctx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := p.Run(pctx)
	res := Result{
		Name:      p.Name,
		Success:   err == nil,
		Duration:  time.Since(start),
		Timestamp: start.UTC(),
	}
	if err != nil {
		res.Message = truncate(err.Error())
		lg.Warn("probe failed", "probe", p.Name, "error", err, "duration", res.Duration)
	} else {
		lg.Info("probe passed", "probe", p.Name, "duration", res.Duration)
	}
	metrics.ObserveProbe(p.Name, res.Success, res.Duration)
	return res
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen]
}
