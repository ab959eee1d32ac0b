// Package shell runs caller-supplied commands under a wall-clock timeout
// and an output budget. The whole capability is opt-in via configuration.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/quiverlab/toolgate/internal/fault"
)

const (
	commandTimeout = 30 * time.Second
	maxOutputBytes = 64 * 1024
)

// Result reports a finished command.
type Result struct {
	Output    string `json:"output"`
	ExitCode  int    `json:"exitCode"`
	Truncated bool   `json:"truncated"`
}

// cappedWriter keeps the first limit bytes and drops the rest, so a
// command cannot grow the buffer past the budget while it runs.
type cappedWriter struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if room := w.limit - w.buf.Len(); room > 0 {
		if n > room {
			p = p[:room]
			w.truncated = true
		}
		w.buf.Write(p)
	} else if n > 0 {
		w.truncated = true
	}
	return n, nil
}

// Runner executes commands through the system shell.
type Runner struct {
	enabled bool
	timeout time.Duration
}

// NewRunner builds a runner; enabled mirrors the exec opt-in flag.
func NewRunner(enabled bool) *Runner {
	return &Runner{enabled: enabled, timeout: commandTimeout}
}

// Run executes command and returns combined output capped to the budget.
// A timeout is a distinct failure, never reported as truncated success.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	if !r.enabled {
		return nil, fault.Securityf("command execution is disabled; set TOOLGATE_ENABLE_EXEC=true to opt in")
	}
	if strings.TrimSpace(command) == "" {
		return nil, fault.Validationf("command", "Command cannot be empty")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	// Stdout and Stderr share one writer, so os/exec serializes writes;
	// the cap holds memory to the budget even for chatty commands.
	buf := &cappedWriter{limit: maxOutputBytes}
	cmd.Stdout = buf
	cmd.Stderr = buf

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &fault.ToolExecutionError{
			Tool:    "execute_command",
			Reason:  fmt.Sprintf("command timed out after %s", r.timeout),
			Timeout: true,
		}
	}

	output := buf.buf.String()
	truncated := buf.truncated

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, &fault.ToolExecutionError{Tool: "execute_command", Reason: "failed to start command", Cause: err}
		}
	}

	return &Result{Output: output, ExitCode: exitCode, Truncated: truncated}, nil
}
