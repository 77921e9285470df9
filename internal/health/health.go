package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// State classifies a single readiness probe attempt. A transient failure
// (connection refused, unexpected status) is NotReady and worth retrying;
// Fatal means the target is misconfigured and retrying cannot help.
type State int

const (
	StateReady State = iota
	StateNotReady
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateNotReady:
		return "not_ready"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one probe attempt.
type Result struct {
	State  State
	Detail string
}

// Checker performs a single readiness probe against one target.
// Implementations must be safe to use for independent targets concurrently
// and must not keep per-call mutable state.
type Checker interface {
	Check(ctx context.Context) Result
	Describe() string
}

// HTTPChecker probes an HTTP URL. Accept decides which status codes count
// as ready; when nil only 200 does, matching the bring-up convention of
// the managed services.
type HTTPChecker struct {
	URL    string
	Client *http.Client
	Accept func(status int) bool
}

func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{URL: url}
}

func (c *HTTPChecker) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func (c *HTTPChecker) accepts(status int) bool {
	if c.Accept != nil {
		return c.Accept(status)
	}
	return status == http.StatusOK
}

func (c *HTTPChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		// Malformed URL: retrying is pointless.
		return Result{State: StateFatal, Detail: err.Error()}
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{State: StateNotReady, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	if c.accepts(resp.StatusCode) {
		return Result{State: StateReady}
	}
	return Result{State: StateNotReady, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
}

func (c *HTTPChecker) Describe() string { return "http:" + c.URL }

// Poller drives a Checker until it reports ready or the attempt budget runs
// out. It holds no per-target state; one Poller may serve many targets.
type Poller struct {
	Logger *slog.Logger
}

// AwaitReady probes up to maxAttempts times, sleeping interval between
// attempts. It returns (true, nil) once the checker reports ready,
// (false, nil) when the budget is exhausted (the caller decides whether
// that is fatal), and (false, err) only for fatal checker results or
// context cancellation.
func (p Poller) AwaitReady(ctx context.Context, c Checker, maxAttempts int, interval time.Duration) (bool, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res := c.Check(ctx)
		switch res.State {
		case StateReady:
			return true, nil
		case StateFatal:
			return false, fmt.Errorf("health check %s: %s", c.Describe(), res.Detail)
		}
		if p.Logger != nil {
			p.Logger.Debug("not ready yet", "target", c.Describe(), "attempt", attempt, "detail", res.Detail)
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
	return false, nil
}
