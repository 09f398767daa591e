// Package gate decides whether a job should be skipped instead of failed:
// either before any step runs, by probing the installed library version, or
// after a failing step, by matching its output against known skip patterns.
package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

// DefaultVersionPattern extracts a dotted version from probe output when the
// gate does not declare its own pattern. The first capture group is used.
const DefaultVersionPattern = `([0-9]+(?:\.[0-9]+)+)`

const probeTimeout = 30 * time.Second

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Skip     bool
	Reason   string
	Detected string
}

// OutputSkip returns a skip decision when any pattern matches the output of a
// failing step. An invalid pattern is an error, not a silent pass.
func OutputSkip(patterns []string, output []byte) (Decision, error) {
	text := string(output)
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Decision{}, &domain.OpError{
				Op:   "gate.output",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("invalid skip pattern %q: %w", pattern, err),
			}
		}
		if re.MatchString(text) {
			return Decision{
				Skip:   true,
				Reason: fmt.Sprintf("output matched skip pattern %q", pattern),
			}, nil
		}
	}
	return Decision{}, nil
}

// Probe runs the version probe command and compares the detected version
// against the minimum. A probe that cannot run, exits non-zero, or yields no
// version is an error; callers treat that as a job failure, not a skip.
func Probe(ctx context.Context, runner ports.CommandRunner, probe domain.VersionProbe, minVersion, dir string, env []string) (Decision, error) {
	if probe.Run == "" {
		return Decision{}, &domain.OpError{
			Op:   "gate.probe",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("version probe has no command"),
		}
	}

	pattern := probe.Pattern
	if pattern == "" {
		pattern = DefaultVersionPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Decision{}, &domain.OpError{
			Op:   "gate.probe",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("invalid probe pattern %q: %w", pattern, err),
		}
	}

	outcome, err := runner.Run(ctx, domain.CommandSpec{
		Command:    probe.Run,
		Dir:        dir,
		Env:        env,
		InheritEnv: true,
		Timeout:    probeTimeout,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("version probe: %w", err)
	}
	if outcome.ExitCode != 0 {
		return Decision{}, fmt.Errorf("version probe exited %d: %s",
			outcome.ExitCode, firstLine(outcome.Stderr))
	}

	detected, err := extractVersion(re, outcome.CombinedOutput())
	if err != nil {
		return Decision{}, err
	}

	min, err := domain.ParseVersion(minVersion)
	if err != nil {
		return Decision{}, fmt.Errorf("min version %q: %w", minVersion, err)
	}
	got, err := domain.ParseVersion(detected)
	if err != nil {
		return Decision{}, fmt.Errorf("detected version %q: %w", detected, err)
	}

	if got.Older(min) {
		return Decision{
			Skip:     true,
			Reason:   fmt.Sprintf("library version %s is older than required %s", detected, minVersion),
			Detected: detected,
		}, nil
	}
	return Decision{Detected: detected}, nil
}

func extractVersion(re *regexp.Regexp, output []byte) (string, error) {
	m := re.FindSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("probe output %q does not match version pattern %q",
			firstLine(output), re.String())
	}
	if len(m) > 1 {
		return string(m[1]), nil
	}
	return string(m[0]), nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
