package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHRunner executes the deployment tool on a fixed remote host over an
// SSH session. It is interchangeable with LocalRunner; topology is a
// configuration choice, not a code path the callers see.
type SSHRunner struct {
	addr    string
	binary  string
	timeout time.Duration
	config  *ssh.ClientConfig
}

// NewSSHRunner builds an SSHRunner from the administrative key pair. The
// host is fixed for the lifetime of the process.
func NewSSHRunner(host, user, keyFile, binary string, timeout time.Duration) (*SSHRunner, error) {
	const op = "runner.NewSSHRunner"

	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	addr := host
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	return &SSHRunner{
		addr:    addr,
		binary:  binary,
		timeout: timeout,
		config: &ssh.ClientConfig{
			User: user,
			Auth: []ssh.AuthMethod{
				ssh.PublicKeys(signer),
			},
			// Single fixed administrative host provisioned alongside
			// this service; host key pinning is handled at deploy time.
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         timeout,
		},
	}, nil
}

// Run dials the host, executes the tool in a session and captures both
// output streams. Connection or session errors map to ErrLaunch; a
// remote non-zero exit resolves with Success=false.
func (r *SSHRunner) Run(ctx context.Context, args []string) (Result, error) {
	const op = "runner.SSHRunner.Run"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client, err := ssh.Dial("tcp", r.addr, r.config)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, err)
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(buildCommand(r.binary, args))
	}()

	select {
	case <-ctx.Done():
		// Closing the session tears the remote command down so the
		// caller's deadline bounds the remote process lifetime too.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return Result{
				Success:     false,
				Output:      stdout.String(),
				ErrorOutput: stderr.String(),
				ExitCode:    exitErr.ExitStatus(),
			}, nil
		}
		return Result{}, fmt.Errorf("%s: %w: %v", op, ErrLaunch, err)
	}

	return Result{
		Success:  true,
		Output:   stdout.String(),
		ExitCode: 0,
	}, nil
}

// buildCommand assembles a safely quoted remote command line.
func buildCommand(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		parts = append(parts, "'"+strings.ReplaceAll(arg, "'", `'\''`)+"'")
	}
	return strings.Join(parts, " ")
}
