package tui

import (
	"errors"
	"testing"

	"bindkit/internal/domain"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "pipeline not found",
			err:  &domain.OpError{Op: "yamlmanifest.load", Kind: domain.KindNotFound, Err: domain.ErrNotFound},
			want: "Pipeline not found",
		},
		{
			name: "environment not found",
			err:  &domain.OpError{Op: "yamlenv.load", Kind: domain.KindNotFound, Err: domain.ErrNotFound},
			want: "Environment not found",
		},
		{
			name: "workspace not found",
			err:  &domain.OpError{Op: "workspacefinder.findroot", Kind: domain.KindNotFound, Err: domain.ErrNotFound},
			want: "Workspace not found",
		},
		{
			name: "missing variable with name",
			err:  &domain.OpError{Op: "vars.resolve", Kind: domain.KindMissingVar, Err: errors.New("missing variable: TOXENV")},
			want: "Missing variable TOXENV",
		},
		{
			name: "invalid yaml with line",
			err:  &domain.OpError{Op: "yamlmanifest.load", Kind: domain.KindInvalidConfig, Path: "pipelines/liberfa.yaml", Err: errors.New("yaml: line 7: did not find expected key")},
			want: "Invalid YAML at liberfa.yaml line 7",
		},
		{
			name: "invalid config without yaml hint",
			err:  &domain.OpError{Op: "yamlmanifest.validate", Kind: domain.KindInvalidConfig, Err: errors.New("matrix exclude references unknown axis")},
			want: "Invalid config",
		},
		{
			name: "execution error",
			err:  &domain.OpError{Op: "exec.start", Kind: domain.KindExecution, Err: errors.New("fork/exec: no such file")},
			want: "Command could not run (see logs)",
		},
		{
			name: "plain yaml error",
			err:  errors.New("yaml: line 3: cannot unmarshal !!str into int"),
			want: "Invalid YAML line 3",
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: "Unexpected error (see logs)",
		},
		{
			name: "nil",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err); got != tt.want {
				t.Errorf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestClampString(t *testing.T) {
	if got := clampString("short", 10); got != "short" {
		t.Errorf("clampString(short) = %q", got)
	}
	if got := clampString("a very long skip reason", 6); got != "a very…" {
		t.Errorf("clamped = %q", got)
	}
	if got := clampString("anything", 0); got != "" {
		t.Errorf("zero budget = %q", got)
	}
}

func TestFmtMillis(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{250, "250ms"},
		{1500, "1.5s"},
		{59_940, "59.9s"},
		{61_000, "1m01s"},
		{125_000, "2m05s"},
	}
	for _, tt := range tests {
		if got := fmtMillis(tt.ms); got != tt.want {
			t.Errorf("fmtMillis(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
