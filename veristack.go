package veristack

import (
	"context"
	"log/slog"
	"time"

	"github.com/docstack/veristack/internal/bootstrap"
	"github.com/docstack/veristack/internal/config"
	"github.com/docstack/veristack/internal/health"
	"github.com/docstack/veristack/internal/history"
	"github.com/docstack/veristack/internal/history/factory"
	"github.com/docstack/veristack/internal/probe"
	"github.com/docstack/veristack/internal/report"
	"github.com/docstack/veristack/internal/supervisor"
	"github.com/docstack/veristack/pkg/client"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type ServiceOutcome = bootstrap.ServiceOutcome

type BootReport = bootstrap.Report

type ProbeResult = probe.Result

type Report = report.Report

type HistorySink = history.Sink

// Harness is a thin facade over the internal supervisor and sequencer.
// It provides a stable public API for embedding.
type Harness struct {
	sup *supervisor.Supervisor
	seq *bootstrap.Sequencer
	lg  *slog.Logger
}

func New(lg *slog.Logger) *Harness {
	if lg == nil {
		lg = slog.Default()
	}
	sup := supervisor.New(lg)
	return &Harness{sup: sup, seq: bootstrap.NewSequencer(sup, lg), lg: lg}
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (*config.FileConfig, error) { return config.Load(path) }

// BringUp starts the specs in order, halting at the first service that does
// not become ready.
func (h *Harness) BringUp(ctx context.Context, specs []Spec) BootReport {
	return h.seq.BringUp(ctx, specs)
}

// Verify runs the standard probe suite against the document API at baseURL.
func (h *Harness) Verify(ctx context.Context, baseURL string) []ProbeResult {
	api := client.New(client.Config{BaseURL: baseURL, Logger: h.lg})
	runner := &probe.Runner{Logger: h.lg, Timeout: 30 * time.Second}
	return runner.RunSuite(ctx, probe.Suite(api))
}

// StopAll stops every process launched by this harness, most recent first.
func (h *Harness) StopAll(grace time.Duration) { h.sup.StopAll(grace) }

// BuildReport combines bring-up outcomes and probe results into a summary.
func BuildReport(services []ServiceOutcome, results []ProbeResult) Report {
	return report.Build(services, results)
}

// NewHistorySink creates a run sink from a DSN (sqlite, postgres,
// clickhouse, opensearch).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// AwaitHTTPReady polls url until it answers 200 OK, for at most maxAttempts
// probes spaced by interval.
func AwaitHTTPReady(ctx context.Context, lg *slog.Logger, url string, maxAttempts int, interval time.Duration) (bool, error) {
	p := health.Poller{Logger: lg}
	return p.AwaitReady(ctx, health.NewHTTPChecker(url), maxAttempts, interval)
}
