package workspacefinder

import (
	"os"
	"path/filepath"
	"testing"

	"bindkit/internal/domain"
)

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "ws")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Partial config (no paths/defaults)
	content := []byte("bindkit:\n  masking:\n    enabled: false\n")
	if err := os.WriteFile(filepath.Join(root, "bindkit.yaml"), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Masking.Enabled != false {
		t.Fatalf("expected masking=false, got=%v", cfg.Masking.Enabled)
	}
	if cfg.Defaults.Environment != "dev" {
		t.Fatalf("expected default env=dev, got=%s", cfg.Defaults.Environment)
	}
	if cfg.Paths.PipelinesDir != "pipelines" {
		t.Fatalf("expected pipelines dir=pipelines, got=%s", cfg.Paths.PipelinesDir)
	}
	if cfg.Paths.EnvironmentsDir != "env" {
		t.Fatalf("expected env dir=env, got=%s", cfg.Paths.EnvironmentsDir)
	}
	if cfg.Paths.RunsDir != "runs" {
		t.Fatalf("expected runs dir=runs, got=%s", cfg.Paths.RunsDir)
	}
	if cfg.Paths.ChecksDir != "checks" {
		t.Fatalf("expected checks dir=checks, got=%s", cfg.Paths.ChecksDir)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("expected metrics enabled by default")
	}
	if cfg.Metrics.Dir != ".bindkit/metrics" {
		t.Fatalf("expected metrics dir=.bindkit/metrics, got=%s", cfg.Metrics.Dir)
	}
}

func TestLoadConfig_OverridesFromFile(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "ws")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	content := []byte(`bindkit:
  defaults:
    env: ci
    pipeline: liberfa
  metrics:
    enabled: false
    dir: /var/lib/bindkit/metrics
  paths:
    pipelines_dir: ci/pipelines
    environments_dir: ci/env
    runs_dir: ci/runs
    checks_dir: ci/checks
`)
	if err := os.WriteFile(filepath.Join(root, "bindkit.yaml"), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Defaults.Environment != "ci" {
		t.Fatalf("expected env=ci, got=%s", cfg.Defaults.Environment)
	}
	if cfg.Defaults.Pipeline != "liberfa" {
		t.Fatalf("expected pipeline=liberfa, got=%s", cfg.Defaults.Pipeline)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled")
	}
	if cfg.Metrics.Dir != "/var/lib/bindkit/metrics" {
		t.Fatalf("expected metrics dir override, got=%s", cfg.Metrics.Dir)
	}
	if cfg.Paths.PipelinesDir != "ci/pipelines" {
		t.Fatalf("expected pipelines dir override, got=%s", cfg.Paths.PipelinesDir)
	}
	if cfg.Paths.ChecksDir != "ci/checks" {
		t.Fatalf("expected checks dir override, got=%s", cfg.Paths.ChecksDir)
	}
	// Masking stays at its default when the file does not mention it.
	if !cfg.Masking.Enabled {
		t.Fatalf("expected masking to default to enabled")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected KindNotFound, got: %v", err)
	}
	// Defaults still come back so callers can proceed if they choose to.
	if cfg.Paths.RunsDir != "runs" {
		t.Fatalf("expected defaults on error, got=%s", cfg.Paths.RunsDir)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "bindkit.yaml"), []byte("bindkit: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadConfig(tmp)
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected KindInvalidConfig, got: %v", err)
	}
}
