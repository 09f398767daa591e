// Package execrunner executes resolved shell steps through `sh -c`, with
// bounded output capture and process-group cleanup on cancellation.
package execrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

// defaultMaxCapture bounds each captured stream so a chatty build cannot blow
// up run artifacts.
const defaultMaxCapture = 256 * 1024

// isolateAllowlist is the environment kept when a job opts out of host env
// inheritance. Enough for a POSIX shell to function, nothing more.
var isolateAllowlist = []string{"PATH", "HOME", "LANG", "LC_ALL", "TMPDIR", "USER", "SHELL"}

type Runner struct {
	shell      string
	maxCapture int
}

type Option func(*Runner)

// WithShell overrides the shell binary (default "sh").
func WithShell(shell string) Option {
	return func(r *Runner) { r.shell = shell }
}

// WithMaxCapture overrides the per-stream capture limit in bytes.
func WithMaxCapture(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxCapture = n
		}
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		shell:      "sh",
		maxCapture: defaultMaxCapture,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.CommandRunner = (*Runner)(nil)

// Run executes the command and waits for it. Non-zero exits are reported in
// the outcome, not as errors; errors mean the command could not start or was
// interrupted. On interruption the partial outcome is still returned.
func (r *Runner) Run(ctx context.Context, spec domain.CommandSpec) (domain.CommandOutcome, error) {
	if spec.Command == "" {
		return domain.CommandOutcome{}, &domain.OpError{
			Op:   "exec.run",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("empty command"),
		}
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(r.shell, "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = buildEnv(spec)

	// Own process group so the whole tree dies on cancellation, not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := &limitWriter{max: r.maxCapture}
	stderr := &limitWriter{max: r.maxCapture}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.CommandOutcome{}, &domain.OpError{
			Op:   "exec.start",
			Kind: domain.KindExecution,
			Err:  err,
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		outcome := r.outcome(cmd, stdout, stderr, start)
		return outcome, fmt.Errorf("execution interrupted: %w", ctx.Err())
	case waitErr = <-done:
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return domain.CommandOutcome{}, &domain.OpError{
				Op:   "exec.wait",
				Kind: domain.KindExecution,
				Err:  waitErr,
			}
		}
	}

	return r.outcome(cmd, stdout, stderr, start), nil
}

func (r *Runner) outcome(cmd *exec.Cmd, stdout, stderr *limitWriter, start time.Time) domain.CommandOutcome {
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	return domain.CommandOutcome{
		ExitCode:   exitCode,
		Stdout:     stdout.bytes(),
		Stderr:     stderr.bytes(),
		Truncated:  stdout.truncated || stderr.truncated,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// buildEnv layers the declared vars over the base environment. Declared vars
// come last: exec.Cmd keeps the last value for duplicate keys.
func buildEnv(spec domain.CommandSpec) []string {
	var base []string
	if spec.InheritEnv {
		base = os.Environ()
	} else {
		for _, key := range isolateAllowlist {
			if v, ok := os.LookupEnv(key); ok {
				base = append(base, key+"="+v)
			}
		}
	}
	return append(base, spec.Env...)
}

// limitWriter captures up to max bytes and flags overflow.
type limitWriter struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	room := w.max - w.buf.Len()
	if room <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		w.buf.Write(p[:room])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *limitWriter) bytes() []byte {
	if w.buf.Len() == 0 {
		return nil
	}
	return w.buf.Bytes()
}
