// Package runner invokes the external deployment tool against the
// remote host and owns the retry strategy for stopping applications.
//
// A Runner resolves whenever the tool terminates, regardless of exit
// code, so callers can surface a non-zero exit as a structured
// application error instead of a transport failure. Only failing to
// launch the tool at all (binary missing, connection refused, deadline
// hit) is a hard error, reported distinctly via ErrLaunch.
package runner

import (
	"context"
	"errors"
)

// ErrLaunch marks failures to start the deployment tool, as opposed to
// a command that ran and exited non-zero.
var ErrLaunch = errors.New("failed to launch remote command")

// ErrCommandFailed marks a command that ran and exited non-zero after
// all built-in fallbacks were exhausted.
var ErrCommandFailed = errors.New("remote command failed")

// Result is the captured outcome of one tool invocation.
type Result struct {
	Success     bool   `json:"success"`
	Output      string `json:"output"`
	ErrorOutput string `json:"error,omitempty"`
	ExitCode    int    `json:"exit_code"`
}

// Runner executes the deployment tool with the given arguments. The
// error return is reserved for launch failures.
type Runner interface {
	Run(ctx context.Context, args []string) (Result, error)
}
