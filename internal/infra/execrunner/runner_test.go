package execrunner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bindkit/internal/domain"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "echo hello",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", out.ExitCode)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "hello" {
		t.Fatalf("expected stdout %q, got %q", "hello", got)
	}
	if out.Truncated {
		t.Fatal("expected output not to be truncated")
	}
}

func TestRun_SeparatesStderr(t *testing.T) {
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "echo out; echo err >&2",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "out" {
		t.Fatalf("expected stdout %q, got %q", "out", got)
	}
	if got := strings.TrimSpace(string(out.Stderr)); got != "err" {
		t.Fatalf("expected stderr %q, got %q", "err", got)
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "exit 3",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", out.ExitCode)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	r := New()

	_, err := r.Run(context.Background(), domain.CommandSpec{})
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestRun_RunsInDir(t *testing.T) {
	r := New()
	dir := t.TempDir()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "pwd",
		Dir:        dir,
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != dir {
		t.Fatalf("expected working dir %q, got %q", dir, got)
	}
}

func TestRun_InheritedEnvIsVisible(t *testing.T) {
	t.Setenv("BINDKIT_TEST_HOST_VAR", "from-host")
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "echo $BINDKIT_TEST_HOST_VAR",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "from-host" {
		t.Fatalf("expected inherited var, got %q", got)
	}
}

func TestRun_IsolateDropsHostEnv(t *testing.T) {
	t.Setenv("BINDKIT_TEST_HOST_VAR", "leaked")
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command: "echo PKG=$PKG HOST=$BINDKIT_TEST_HOST_VAR",
		Env:     []string{"PKG=erfa"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(string(out.Stdout))
	if got != "PKG=erfa HOST=" {
		t.Fatalf("expected declared vars only, got %q", got)
	}
}

func TestRun_DeclaredEnvWinsOverHost(t *testing.T) {
	t.Setenv("BINDKIT_TEST_HOST_VAR", "from-host")
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "echo $BINDKIT_TEST_HOST_VAR",
		Env:        []string{"BINDKIT_TEST_HOST_VAR=declared"},
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "declared" {
		t.Fatalf("expected declared value to win, got %q", got)
	}
}

func TestRun_TimeoutKillsProcess(t *testing.T) {
	r := New()

	start := time.Now()
	_, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "sleep 5",
		InheritEnv: true,
		Timeout:    50 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("process was not killed promptly, took %s", elapsed)
	}
}

func TestRun_CancelKillsProcess(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	out, err := r.Run(ctx, domain.CommandSpec{
		Command:    "echo partial; sleep 5",
		InheritEnv: true,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !strings.Contains(string(out.Stdout), "partial") {
		t.Fatalf("expected partial output to be kept, got %q", out.Stdout)
	}
}

func TestRun_TruncatesLongOutput(t *testing.T) {
	r := New(WithMaxCapture(16))

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "printf 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa'",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Truncated {
		t.Fatal("expected output to be flagged truncated")
	}
	if len(out.Stdout) != 16 {
		t.Fatalf("expected capture capped at 16 bytes, got %d", len(out.Stdout))
	}
}

func TestRun_ReportsDuration(t *testing.T) {
	r := New()

	out, err := r.Run(context.Background(), domain.CommandSpec{
		Command:    "sleep 0.1",
		InheritEnv: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DurationMS < 50 {
		t.Fatalf("expected duration of at least 50ms, got %dms", out.DurationMS)
	}
}
