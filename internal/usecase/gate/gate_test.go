package gate

import (
	"context"
	"strings"
	"testing"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type stubRunner struct {
	outcome domain.CommandOutcome
	err     error
	spec    domain.CommandSpec
}

var _ ports.CommandRunner = (*stubRunner)(nil)

func (s *stubRunner) Run(ctx context.Context, spec domain.CommandSpec) (domain.CommandOutcome, error) {
	s.spec = spec
	if s.err != nil {
		return domain.CommandOutcome{}, s.err
	}
	return s.outcome, nil
}

func TestOutputSkip_Matches(t *testing.T) {
	output := []byte("liberfa 1.7.0 is too old, need >= 2.0.0\n")
	decision, err := OutputSkip([]string{`too old`}, output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Skip {
		t.Fatal("expected skip decision")
	}
	if !strings.Contains(decision.Reason, "too old") {
		t.Errorf("expected pattern in reason, got %q", decision.Reason)
	}
}

func TestOutputSkip_NoMatch(t *testing.T) {
	decision, err := OutputSkip([]string{`too old`}, []byte("segmentation fault"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Skip {
		t.Error("expected no skip for unmatched output")
	}
}

func TestOutputSkip_InvalidPattern(t *testing.T) {
	_, err := OutputSkip([]string{`[`}, []byte("anything"))
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Errorf("expected KindInvalidConfig, got %v", err)
	}
}

func TestProbe_NewEnoughVersion(t *testing.T) {
	runner := &stubRunner{outcome: domain.CommandOutcome{
		ExitCode: 0,
		Stdout:   []byte("2.0.1\n"),
	}}

	decision, err := Probe(context.Background(), runner,
		domain.VersionProbe{Run: "pkg-config --modversion erfa"},
		"1.7.3", "/work", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Skip {
		t.Errorf("expected no skip for 2.0.1 >= 1.7.3, reason: %s", decision.Reason)
	}
	if decision.Detected != "2.0.1" {
		t.Errorf("expected detected 2.0.1, got %q", decision.Detected)
	}
	if runner.spec.Command != "pkg-config --modversion erfa" {
		t.Errorf("unexpected probe command %q", runner.spec.Command)
	}
	if !runner.spec.InheritEnv {
		t.Error("expected probe to inherit the environment")
	}
}

func TestProbe_TooOldSkips(t *testing.T) {
	runner := &stubRunner{outcome: domain.CommandOutcome{
		ExitCode: 0,
		Stdout:   []byte("1.7.0\n"),
	}}

	decision, err := Probe(context.Background(), runner,
		domain.VersionProbe{Run: "pkg-config --modversion erfa"},
		"1.7.3", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Skip {
		t.Fatal("expected skip for 1.7.0 < 1.7.3")
	}
	if !strings.Contains(decision.Reason, "1.7.0") || !strings.Contains(decision.Reason, "1.7.3") {
		t.Errorf("expected both versions in reason, got %q", decision.Reason)
	}
	if decision.Detected != "1.7.0" {
		t.Errorf("expected detected 1.7.0, got %q", decision.Detected)
	}
}

func TestProbe_CustomPattern(t *testing.T) {
	runner := &stubRunner{outcome: domain.CommandOutcome{
		ExitCode: 0,
		Stdout:   []byte("liberfa version: 2.0.0 (release)\n"),
	}}

	decision, err := Probe(context.Background(), runner, domain.VersionProbe{
		Run:     "erfa-config --version",
		Pattern: `version: ([0-9.]+)`,
	}, "1.7.3", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Detected != "2.0.0" {
		t.Errorf("expected detected 2.0.0, got %q", decision.Detected)
	}
}

func TestProbe_NonZeroExitIsError(t *testing.T) {
	runner := &stubRunner{outcome: domain.CommandOutcome{
		ExitCode: 1,
		Stderr:   []byte("Package erfa was not found\n"),
	}}

	_, err := Probe(context.Background(), runner,
		domain.VersionProbe{Run: "pkg-config --modversion erfa"},
		"1.7.3", "", nil)
	if err == nil {
		t.Fatal("expected error for non-zero probe exit")
	}
	if !strings.Contains(err.Error(), "Package erfa was not found") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestProbe_NoVersionInOutput(t *testing.T) {
	runner := &stubRunner{outcome: domain.CommandOutcome{
		ExitCode: 0,
		Stdout:   []byte("no version here\n"),
	}}

	_, err := Probe(context.Background(), runner,
		domain.VersionProbe{Run: "erfa-config"},
		"1.7.3", "", nil)
	if err == nil {
		t.Fatal("expected error when probe output has no version")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProbe_EmptyCommand(t *testing.T) {
	_, err := Probe(context.Background(), &stubRunner{}, domain.VersionProbe{}, "1.0", "", nil)
	if err == nil {
		t.Fatal("expected error for empty probe command")
	}
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Errorf("expected KindInvalidConfig, got %v", err)
	}
}
