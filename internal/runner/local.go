package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// LocalRunner spawns the deployment tool as a subprocess on this host.
type LocalRunner struct {
	binary  string
	timeout time.Duration
}

// NewLocalRunner builds a LocalRunner for the given binary. Every
// invocation runs under its own deadline; on expiry the subprocess is
// killed rather than left running.
func NewLocalRunner(binary string, timeout time.Duration) *LocalRunner {
	return &LocalRunner{
		binary:  binary,
		timeout: timeout,
	}
}

// Run executes the tool and captures stdout and stderr fully before
// returning. A non-zero exit resolves with Success=false; only a failure
// to start the subprocess (or the deadline killing it) returns an error.
func (r *LocalRunner) Run(ctx context.Context, args []string) (Result, error) {
	const op = "runner.LocalRunner.Run"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return Result{
				Success:     false,
				Output:      stdout.String(),
				ErrorOutput: stderr.String(),
				ExitCode:    exitErr.ExitCode(),
			}, nil
		}
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, ctx.Err())
		}
		return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, err)
	}

	return Result{
		Success:  true,
		Output:   stdout.String(),
		ExitCode: 0,
	}, nil
}
