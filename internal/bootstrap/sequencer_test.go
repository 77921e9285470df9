package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docstack/veristack/internal/health"
	"github.com/docstack/veristack/internal/supervisor"
)

type fakeLauncher struct {
	launched []string
	failOn   map[string]error
}

func (f *fakeLauncher) Launch(spec supervisor.Spec) (*supervisor.Handle, error) {
	if err, ok := f.failOn[spec.Name]; ok {
		return nil, err
	}
	f.launched = append(f.launched, spec.Name)
	return nil, nil
}

// fakeChecker reports not_ready for the first readyAfter-1 calls, then
// ready; readyAfter < 0 means never ready.
type fakeChecker struct {
	name       string
	readyAfter int
	calls      int
}

func (f *fakeChecker) Check(ctx context.Context) health.Result {
	f.calls++
	if f.readyAfter >= 0 && f.calls >= f.readyAfter {
		return health.Result{State: health.StateReady}
	}
	return health.Result{State: health.StateNotReady, Detail: "connection refused"}
}

func (f *fakeChecker) Describe() string { return "fake:" + f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSequencer(l *fakeLauncher, checkers map[string]*fakeChecker) *Sequencer {
	s := NewSequencer(l, testLogger())
	s.NewChecker = func(spec supervisor.Spec) health.Checker {
		return checkers[spec.Name]
	}
	return s
}

func specs(names ...string) []supervisor.Spec {
	out := make([]supervisor.Spec, 0, len(names))
	for _, n := range names {
		out = append(out, supervisor.Spec{
			Name:          n,
			Command:       "sleep 1",
			MaxAttempts:   3,
			RetryInterval: time.Millisecond,
		})
	}
	return out
}

func TestBringUpAllReady(t *testing.T) {
	l := &fakeLauncher{}
	// First check is the pre-launch probe, so ready on the 2nd call means
	// ready on the first post-launch attempt.
	checkers := map[string]*fakeChecker{
		"search-engine": {name: "search-engine", readyAfter: 2},
		"dashboard":     {name: "dashboard", readyAfter: 2},
		"doc-api":       {name: "doc-api", readyAfter: 2},
	}
	rep := newTestSequencer(l, checkers).BringUp(context.Background(), specs("search-engine", "dashboard", "doc-api"))
	if !rep.OK {
		t.Fatalf("expected OK report: %+v", rep)
	}
	if len(l.launched) != 3 {
		t.Fatalf("expected 3 launches, got %v", l.launched)
	}
	for _, o := range rep.Services {
		if !o.Started || !o.Ready {
			t.Fatalf("outcome not started+ready: %+v", o)
		}
	}
}

func TestBringUpHaltsOnFirstFailure(t *testing.T) {
	l := &fakeLauncher{}
	checkers := map[string]*fakeChecker{
		"search-engine": {name: "search-engine", readyAfter: 2},
		"dashboard":     {name: "dashboard", readyAfter: -1}, // never ready
		"doc-api":       {name: "doc-api", readyAfter: 2},
	}
	rep := newTestSequencer(l, checkers).BringUp(context.Background(), specs("search-engine", "dashboard", "doc-api"))
	if rep.OK {
		t.Fatalf("expected failed report")
	}
	se, _ := rep.Outcome("search-engine")
	if !se.Started || !se.Ready {
		t.Fatalf("search-engine should be started+ready: %+v", se)
	}
	db, _ := rep.Outcome("dashboard")
	if !db.Started || db.Ready {
		t.Fatalf("dashboard should be started but not ready: %+v", db)
	}
	api, _ := rep.Outcome("doc-api")
	if api.Started || api.Ready {
		t.Fatalf("doc-api must never be started after halt: %+v", api)
	}
	for _, name := range l.launched {
		if name == "doc-api" {
			t.Fatalf("doc-api was launched despite halt")
		}
	}
	if checkers["doc-api"].calls != 0 {
		t.Fatalf("doc-api health was probed despite halt")
	}
}

func TestBringUpSkipsAlreadyHealthyService(t *testing.T) {
	l := &fakeLauncher{}
	checkers := map[string]*fakeChecker{
		"search-engine": {name: "search-engine", readyAfter: 1}, // healthy before launch
		"doc-api":       {name: "doc-api", readyAfter: 2},
	}
	rep := newTestSequencer(l, checkers).BringUp(context.Background(), specs("search-engine", "doc-api"))
	if !rep.OK {
		t.Fatalf("expected OK: %+v", rep)
	}
	se, _ := rep.Outcome("search-engine")
	if se.Started || !se.AlreadyRunning || !se.Ready {
		t.Fatalf("expected already-running outcome: %+v", se)
	}
	if len(l.launched) != 1 || l.launched[0] != "doc-api" {
		t.Fatalf("only doc-api should have been launched, got %v", l.launched)
	}
}

func TestBringUpLaunchErrorHalts(t *testing.T) {
	l := &fakeLauncher{failOn: map[string]error{
		"search-engine": &supervisor.LaunchError{Name: "search-engine", Err: errors.New("no such file")},
	}}
	checkers := map[string]*fakeChecker{
		"search-engine": {name: "search-engine", readyAfter: -1},
		"doc-api":       {name: "doc-api", readyAfter: 1},
	}
	rep := newTestSequencer(l, checkers).BringUp(context.Background(), specs("search-engine", "doc-api"))
	if rep.OK {
		t.Fatalf("expected failure")
	}
	se, _ := rep.Outcome("search-engine")
	if se.Started || se.Ready || se.Err == "" {
		t.Fatalf("launch failure outcome wrong: %+v", se)
	}
	api, _ := rep.Outcome("doc-api")
	if api.Started {
		t.Fatalf("doc-api started despite launch failure upstream")
	}
}

func TestBringUpExhaustsRetryBudget(t *testing.T) {
	l := &fakeLauncher{}
	flapping := &fakeChecker{name: "flappy", readyAfter: -1}
	checkers := map[string]*fakeChecker{"flappy": flapping}
	sp := specs("flappy")
	sp[0].MaxAttempts = 4
	rep := newTestSequencer(l, checkers).BringUp(context.Background(), sp)
	if rep.OK {
		t.Fatalf("expected failure")
	}
	// 1 pre-launch probe + 4 budgeted attempts, never more.
	if flapping.calls != 5 {
		t.Fatalf("expected 5 checks, got %d", flapping.calls)
	}
}
