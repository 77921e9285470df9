package supervisor

import (
	"os/exec"
	"strings"
	"time"

	"github.com/docstack/veristack/internal/logger"
)

// Spec describes one managed service: how to start it and how to tell
// that it is ready. Specs are immutable once handed to the supervisor.
type Spec struct {
	Name          string        `json:"name"`
	Command       string        `json:"command"`        // command line to start the service
	WorkDir       string        `json:"work_dir"`       // optional working dir
	Env           []string      `json:"env"`            // optional extra env (KEY=VALUE)
	HealthURL     string        `json:"health_url"`     // readiness probe target
	MaxAttempts   int           `json:"max_attempts"`   // readiness attempts before giving up
	RetryInterval time.Duration `json:"retry_interval"` // wait between readiness attempts
	Log           logger.Config `json:"log"`            // where the service's stdout/stderr go
}

// BuildCommand constructs an *exec.Cmd for the spec's command line.
// It avoids invoking a shell when not necessary and honors an explicit
// "sh -c ..." already present in the command string without wrapping it
// in a second shell.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if after, ok := parseExplicitShell(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects "sh -c <ARG>" style prefixes. The substring
// after "-c " is preserved verbatim except that one pair of surrounding
// quotes is stripped so the shell sees the actual script.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
