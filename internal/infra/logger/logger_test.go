package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	tmp := t.TempDir()

	cleanup, err := Setup(Config{Root: tmp})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}

	L().Info("run started", zap.String("pipeline", "liberfa"))

	path := Path()
	want := filepath.Join(tmp, ".bindkit", "logs", "bindkit.log")
	if path != want {
		t.Fatalf("expected log path %s, got %s", want, path)
	}

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}

	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"msg":"run started"`) {
		t.Fatalf("expected logged message, got:\n%s", s)
	}
	if !strings.Contains(s, `"pipeline":"liberfa"`) {
		t.Fatalf("expected structured field, got:\n%s", s)
	}
	if !strings.Contains(s, `"timestamp"`) {
		t.Fatalf("expected timestamp key, got:\n%s", s)
	}
}

func TestSetup_CleanupResetsGlobal(t *testing.T) {
	tmp := t.TempDir()

	cleanup, err := Setup(Config{Root: tmp})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}

	if Path() != "" {
		t.Fatalf("expected empty path after cleanup, got %s", Path())
	}
	// Must not panic after cleanup.
	L().Info("dropped")
}

func TestSetup_DebugLowersLevel(t *testing.T) {
	tmp := t.TempDir()

	cleanup, err := Setup(Config{Root: tmp, Debug: true})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}

	L().Debug("debug detail")

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(tmp, ".bindkit", "logs", "bindkit.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "debug detail") {
		t.Fatalf("expected debug line, got:\n%s", string(b))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}
