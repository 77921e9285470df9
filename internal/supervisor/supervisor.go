package supervisor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultGrace is how long Stop waits after the termination signal before
// escalating to a forceful kill.
const DefaultGrace = 3 * time.Second

// LaunchError reports that a service process could not be spawned at all
// (missing binary, permission denied). It is never retried here; readiness
// retries belong to the health poller.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Handle tracks one launched service process. Its state is owned by the
// Supervisor; other components observe readiness through the health poller
// and never inspect process state directly.
type Handle struct {
	mu        sync.Mutex
	spec      Spec
	pid       int
	waitDone  chan struct{} // closed by the reaper when Wait returns
	exitErr   error
	stopped   bool // Stop already ran to completion; makes Stop idempotent
	outCloser io.WriteCloser
	errCloser io.WriteCloser
}

func (h *Handle) Spec() Spec { return h.spec }

func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// Exited reports whether the process has been reaped, and its exit error.
func (h *Handle) Exited() (bool, error) {
	select {
	case <-h.waitDone:
		h.mu.Lock()
		defer h.mu.Unlock()
		return true, h.exitErr
	default:
		return false, nil
	}
}

func (h *Handle) markExited(err error) {
	h.mu.Lock()
	h.exitErr = err
	h.mu.Unlock()
	close(h.waitDone)
}

func (h *Handle) closeWriters() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outCloser != nil {
		_ = h.outCloser.Close()
		h.outCloser = nil
	}
	if h.errCloser != nil {
		_ = h.errCloser.Close()
		h.errCloser = nil
	}
}

// Supervisor launches service processes detached into their own process
// group and stops whole groups on shutdown so no descendant survives.
type Supervisor struct {
	logger  *slog.Logger
	mu      sync.Mutex
	handles []*Handle
}

func New(lg *slog.Logger) *Supervisor {
	if lg == nil {
		lg = slog.Default()
	}
	return &Supervisor{logger: lg}
}

// Launch starts the spec's command in its own process group with its
// output redirected away from the caller (rotated log files when
// configured, the null device otherwise). The returned handle is also
// retained internally for StopAll.
func (s *Supervisor) Launch(spec Spec) (*Handle, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = sysProcAttr()

	h := &Handle{spec: spec, waitDone: make(chan struct{})}
	if spec.Log.Enabled() {
		if spec.Log.Dir != "" {
			_ = os.MkdirAll(spec.Log.Dir, 0o750)
		}
		outW, errW, _ := spec.Log.Writers(spec.Name)
		h.outCloser, h.errCloser = outW, errW
	}
	if h.outCloser != nil {
		cmd.Stdout = h.outCloser
	} else {
		cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if h.errCloser != nil {
		cmd.Stderr = h.errCloser
	} else {
		cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}

	if err := cmd.Start(); err != nil {
		h.closeWriters()
		return nil, &LaunchError{Name: spec.Name, Err: err}
	}
	h.mu.Lock()
	h.pid = cmd.Process.Pid
	h.mu.Unlock()

	// Reap in the background so a quickly exiting service never becomes a
	// zombie and Stop can wait on waitDone instead of racing cmd.Wait.
	go func() {
		err := cmd.Wait()
		h.markExited(err)
		h.closeWriters()
	}()

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.logger.Info("launched service", "name", spec.Name, "pid", h.PID())
	return h, nil
}

// IsAlive reports whether the handle's process is still running.
func (s *Supervisor) IsAlive(h *Handle) bool {
	if h == nil {
		return false
	}
	if exited, _ := h.Exited(); exited {
		return false
	}
	return processAlive(h.PID())
}

// Stop terminates the process group gracefully, escalating to a forceful
// kill after the grace period. Calling Stop on an already-stopped handle
// is a no-op.
func (s *Supervisor) Stop(h *Handle, grace time.Duration) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	pid := h.pid
	name := h.spec.Name
	h.mu.Unlock()

	if exited, _ := h.Exited(); exited {
		return nil
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	// Signal the whole group: children spawned by the service must die too.
	_ = terminateGroup(pid)
	select {
	case <-h.waitDone:
		s.logger.Info("service stopped", "name", name)
		return nil
	case <-time.After(grace):
	}

	s.logger.Warn("grace period expired, killing", "name", name, "pid", pid)
	_ = killGroup(pid)
	select {
	case <-h.waitDone:
	case <-time.After(500 * time.Millisecond):
		// best-effort; the kernel will finish the kill
	}
	return nil
}

// StopAll stops every launched service in reverse launch order, so
// dependents go down before their dependencies.
func (s *Supervisor) StopAll(grace time.Duration) {
	s.mu.Lock()
	handles := make([]*Handle, len(s.handles))
	copy(handles, s.handles)
	s.mu.Unlock()
	for i := len(handles) - 1; i >= 0; i-- {
		_ = s.Stop(handles[i], grace)
	}
}
