package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docstack/veristack/internal/bootstrap"
	"github.com/docstack/veristack/internal/config"
	"github.com/docstack/veristack/internal/docapi"
	"github.com/docstack/veristack/internal/health"
	"github.com/docstack/veristack/internal/history"
	"github.com/docstack/veristack/internal/history/factory"
	"github.com/docstack/veristack/internal/logger"
	"github.com/docstack/veristack/internal/metrics"
	"github.com/docstack/veristack/internal/probe"
	"github.com/docstack/veristack/internal/report"
	"github.com/docstack/veristack/internal/search"
	"github.com/docstack/veristack/internal/supervisor"
	"github.com/docstack/veristack/pkg/client"
)

const shutdownTimeout = 5 * time.Second

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setup(flags *GlobalFlags) (*config.FileConfig, *slog.Logger, error) {
	lg := logger.NewConsole(parseLevel(flags.LogLevel))
	fc, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return fc, lg, nil
}

func startMetrics(fc *config.FileConfig, lg *slog.Logger) {
	if err := metrics.RegisterDefault(); err != nil {
		lg.Warn("metrics registration failed", "error", err)
		return
	}
	if fc.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(fc.Metrics.Listen); err != nil {
				lg.Warn("metrics server stopped", "error", err)
			}
		}()
	}
}

// newVerifyCmd builds the full pipeline: ordered bring-up, probe suite,
// history record, then serve the cached report until interrupted.
func newVerifyCmd(flags *GlobalFlags) *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Bring up the service chain, run the probe suite, and serve the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, lg, err := setup(flags)
			if err != nil {
				return err
			}
			startMetrics(fc, lg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sup := supervisor.New(lg)
			defer sup.StopAll(supervisor.DefaultGrace)

			started := time.Now().UTC()
			seq := bootstrap.NewSequencer(sup, lg)
			boot := seq.BringUp(ctx, fc.ServiceSpecs())

			var results []probe.Result
			if boot.OK {
				if apiURL == "" {
					apiURL = "http://localhost" + fc.API.Listen
				}
				api := client.New(client.Config{BaseURL: apiURL, Logger: lg})
				runner := &probe.Runner{Logger: lg, Timeout: 30 * time.Second}
				results = runner.RunSuite(ctx, probe.Suite(api))
			} else {
				lg.Error("bring-up failed, probe suite skipped")
			}

			var agg report.Aggregator
			agg.SetOutcome(boot.Services, results)
			rep := agg.Report()
			lg.Info("verification finished",
				"total", rep.Total, "passed", rep.Passed, "failed", rep.Failed,
				"success_rate", fmt.Sprintf("%.1f%%", rep.SuccessRate))

			recordRun(ctx, fc, lg, started, rep)

			srv := report.NewServer(&agg, lg)
			go func() {
				if err := srv.Start(fc.Report.Listen); err != nil {
					lg.Error("report server failed", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			lg.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)

			if !boot.OK {
				return fmt.Errorf("bring-up failed")
			}
			if rep.Failed > 0 {
				return fmt.Errorf("%d of %d probes failed", rep.Failed, rep.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "document API base URL (default derived from [api] listen)")
	return cmd
}

// recordRun persists the run to the configured history sink. Failures are
// logged, never fatal: the report still serves.
func recordRun(ctx context.Context, fc *config.FileConfig, lg *slog.Logger, started time.Time, rep report.Report) {
	if fc.History.DSN == "" {
		return
	}
	sink, err := factory.NewSinkFromDSN(fc.History.DSN)
	if err != nil {
		lg.Warn("history sink unavailable", "dsn", fc.History.DSN, "error", err)
		return
	}
	defer func() { _ = sink.Close() }()
	if err := sink.Record(ctx, history.FromReport(started, rep)); err != nil {
		lg.Warn("history record failed", "error", err)
	}
}

// newUpCmd brings the chain up and supervises it until interrupted.
func newUpCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Bring up the service chain and supervise it until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, lg, err := setup(flags)
			if err != nil {
				return err
			}
			startMetrics(fc, lg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sup := supervisor.New(lg)
			defer sup.StopAll(supervisor.DefaultGrace)

			seq := bootstrap.NewSequencer(sup, lg)
			boot := seq.BringUp(ctx, fc.ServiceSpecs())
			for _, svc := range boot.Services {
				if svc.Err != "" {
					lg.Error("service not ready", "name", svc.Name, "error", svc.Err)
				}
			}
			if !boot.OK {
				return fmt.Errorf("bring-up failed")
			}

			lg.Info("all services ready, supervising (ctrl-c to stop)")
			<-ctx.Done()
			lg.Info("shutting down")
			return nil
		},
	}
}

// newAPICmd runs the embedded document API against the configured search
// backend.
func newAPICmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the document storage API backed by the search engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, lg, err := setup(flags)
			if err != nil {
				return err
			}
			startMetrics(fc, lg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := search.New(fc.API.SearchURL, fc.API.Index)
			poller := health.Poller{Logger: lg}
			ready, err := poller.AwaitReady(ctx, health.NewHTTPChecker(fc.API.SearchURL), 30, time.Second)
			if err != nil {
				return fmt.Errorf("search engine readiness: %w", err)
			}
			if !ready {
				return fmt.Errorf("search engine at %s not ready", fc.API.SearchURL)
			}
			if err := store.EnsureIndex(ctx); err != nil {
				return fmt.Errorf("ensure index: %w", err)
			}

			srv := docapi.NewServer(fc.API.Listen, store, lg)
			lg.Info("document API listening", "addr", fc.API.Listen, "index", fc.API.Index)

			<-ctx.Done()
			lg.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
