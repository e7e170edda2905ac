package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solusikonsep/deploykit/internal/config"
	"github.com/solusikonsep/deploykit/internal/lib/sl"
	"github.com/solusikonsep/deploykit/internal/metrics"
)

// StopResult reports the outcome of stopping an application. Destroyed
// tells the caller the graceful scale-down failed and the app was
// force-removed instead; the remote application must not be assumed to
// still exist after a failed scale-down.
type StopResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Output    string `json:"output"`
	Destroyed bool   `json:"destroyed"`
}

// Executor wraps a Runner with logging, metrics and the stop fallback
// strategy.
type Executor struct {
	runner Runner
	log    *slog.Logger
}

// NewExecutor picks the runner strategy from configuration: "local"
// spawns the tool on this host, "ssh" runs it on the fixed remote host.
func NewExecutor(cfg config.Runner, log *slog.Logger) (*Executor, error) {
	const op = "runner.NewExecutor"

	var r Runner
	switch cfg.Mode {
	case "local", "":
		r = NewLocalRunner(cfg.Binary, cfg.CommandTimeout)
	case "ssh":
		sshRunner, err := NewSSHRunner(cfg.SSHHost, cfg.SSHUser, cfg.SSHKeyFile, cfg.Binary, cfg.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r = sshRunner
	default:
		return nil, fmt.Errorf("%s: unknown runner mode %q", op, cfg.Mode)
	}

	return &Executor{runner: r, log: log}, nil
}

// NewExecutorWithRunner builds an Executor around an existing Runner.
func NewExecutorWithRunner(r Runner, log *slog.Logger) *Executor {
	return &Executor{runner: r, log: log}
}

// Run executes an arbitrary command against the remote host. The result
// carries the full stdout/stderr capture; a non-zero exit is a resolved
// result, not an error.
func (e *Executor) Run(ctx context.Context, args []string) (Result, error) {
	verb := "unknown"
	if len(args) > 0 {
		verb = args[0]
	}

	result, err := e.runner.Run(ctx, args)
	if err != nil {
		metrics.RemoteCommands.WithLabelValues(verb, metrics.OutcomeLaunch).Inc()
		e.log.Error("remote command did not launch", slog.Any("args", args), sl.Err(err))
		return Result{}, err
	}

	if result.Success {
		metrics.RemoteCommands.WithLabelValues(verb, metrics.OutcomeSuccess).Inc()
	} else {
		metrics.RemoteCommands.WithLabelValues(verb, metrics.OutcomeFailed).Inc()
		e.log.Warn("remote command exited non-zero",
			slog.Any("args", args),
			slog.Int("exit_code", result.ExitCode))
	}
	return result, nil
}

// StopApplication scales the named application to zero. When the
// scale-down exits non-zero it retries once with the destructive
// fallback, force-removing the application. Keeping workloads
// functionally stopped matters more than preserving redeployability, so
// destruction is the better-than-nothing alternative; the message tells
// the caller which one happened. Both attempts failing reports the
// fallback's captured error output and exit code.
func (e *Executor) StopApplication(ctx context.Context, appName string) (StopResult, error) {
	const op = "runner.Executor.StopApplication"

	result, err := e.Run(ctx, []string{"ps:scale", appName, "web=0"})
	if err != nil {
		return StopResult{}, err
	}
	if result.Success {
		return StopResult{
			Success: true,
			Message: fmt.Sprintf("application %s stopped successfully", appName),
			Output:  result.Output,
		}, nil
	}

	metrics.StopFallbacks.Inc()
	e.log.Warn("scale-down failed, falling back to destroy",
		slog.String("app", appName),
		slog.Int("exit_code", result.ExitCode),
		slog.String("stderr", result.ErrorOutput))

	fallback, err := e.Run(ctx, []string{"apps:destroy", appName, "--force"})
	if err != nil {
		return StopResult{}, err
	}
	if fallback.Success {
		return StopResult{
			Success:   true,
			Message:   fmt.Sprintf("application %s destroyed successfully", appName),
			Output:    fallback.Output,
			Destroyed: true,
		}, nil
	}

	return StopResult{}, fmt.Errorf("%s: %w: exit code %d: %s",
		op, ErrCommandFailed, fallback.ExitCode, fallback.ErrorOutput)
}
