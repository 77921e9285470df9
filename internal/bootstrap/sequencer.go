package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docstack/veristack/internal/health"
	"github.com/docstack/veristack/internal/metrics"
	"github.com/docstack/veristack/internal/supervisor"
)

// Launcher starts a service process. Implemented by supervisor.Supervisor;
// the sequencer never touches the returned handle (process state stays
// owned by the supervisor).
type Launcher interface {
	Launch(spec supervisor.Spec) (*supervisor.Handle, error)
}

// ServiceOutcome records what happened to one spec during bring-up.
type ServiceOutcome struct {
	Name           string `json:"name"`
	Started        bool   `json:"started"`
	Ready          bool   `json:"ready"`
	AlreadyRunning bool   `json:"already_running,omitempty"`
	Err            string `json:"error,omitempty"`
}

// Report is the readiness report for a full bring-up attempt, one outcome
// per spec in input order.
type Report struct {
	Services []ServiceOutcome `json:"services"`
	OK       bool             `json:"ok"`
}

// Outcome returns the outcome for the named service, if present.
func (r Report) Outcome(name string) (ServiceOutcome, bool) {
	for _, o := range r.Services {
		if o.Name == name {
			return o, true
		}
	}
	return ServiceOutcome{}, false
}

// Sequencer brings up an ordered chain of services. Each service is
// assumed to depend on every service before it, so the first readiness
// failure halts the sequence: later services are reported as not started.
type Sequencer struct {
	sup    Launcher
	poller health.Poller
	logger *slog.Logger

	// NewChecker builds the readiness checker for a spec. Overridable in
	// tests; defaults to an HTTP checker on the spec's health URL.
	NewChecker func(spec supervisor.Spec) health.Checker
}

func NewSequencer(sup Launcher, lg *slog.Logger) *Sequencer {
	if lg == nil {
		lg = slog.Default()
	}
	return &Sequencer{
		sup:    sup,
		poller: health.Poller{Logger: lg},
		logger: lg,
		NewChecker: func(spec supervisor.Spec) health.Checker {
			return health.NewHTTPChecker(spec.HealthURL)
		},
	}
}

// BringUp walks the specs in order. A service that already answers its
// health check is left alone; otherwise it is launched and polled for
// readiness under the spec's retry budget. Every spec appears in the
// report, including the ones skipped after a halt.
func (s *Sequencer) BringUp(ctx context.Context, specs []supervisor.Spec) Report {
	rep := Report{OK: true}
	for i, spec := range specs {
		if !rep.OK {
			rep.Services = append(rep.Services, ServiceOutcome{
				Name: spec.Name,
				Err:  "skipped: earlier service in the chain is not ready",
			})
			continue
		}
		out := s.bringUpOne(ctx, spec)
		rep.Services = append(rep.Services, out)
		if !out.Ready {
			rep.OK = false
			s.logger.Error("halting bring-up", "failed", spec.Name, "remaining", len(specs)-i-1)
		}
	}
	return rep
}

func (s *Sequencer) bringUpOne(ctx context.Context, spec supervisor.Spec) ServiceOutcome {
	out := ServiceOutcome{Name: spec.Name}
	checker := s.NewChecker(spec)

	// One probe up front: an instance left over from a previous run that
	// is already healthy must not be launched again.
	if res := checker.Check(ctx); res.State == health.StateReady {
		s.logger.Info("service already running", "name", spec.Name)
		out.AlreadyRunning = true
		out.Ready = true
		metrics.SetServiceReady(spec.Name, true)
		return out
	}

	if _, err := s.sup.Launch(spec); err != nil {
		out.Err = err.Error()
		metrics.SetServiceReady(spec.Name, false)
		return out
	}
	out.Started = true
	metrics.IncLaunch(spec.Name)

	s.logger.Info("waiting for readiness", "name", spec.Name,
		"target", checker.Describe(), "attempts", spec.MaxAttempts)
	ready, err := s.poller.AwaitReady(ctx, checker, spec.MaxAttempts, spec.RetryInterval)
	if err != nil {
		out.Err = err.Error()
	} else if !ready {
		out.Err = fmt.Sprintf("not ready after %d attempts", spec.MaxAttempts)
	}
	out.Ready = ready
	metrics.SetServiceReady(spec.Name, ready)
	return out
}
