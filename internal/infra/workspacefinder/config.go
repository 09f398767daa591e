package workspacefinder

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bindkit/internal/domain"
)

// LoadConfig loads bindkit.yaml from the workspace root and applies defaults.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, "bindkit.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	// Apply parsed values on top of defaults.
	if y.Bindkit.Masking.Enabled != nil {
		cfg.Masking.Enabled = *y.Bindkit.Masking.Enabled
	}
	if y.Bindkit.Defaults.Env != "" {
		cfg.Defaults.Environment = y.Bindkit.Defaults.Env
	}
	if y.Bindkit.Defaults.Pipeline != "" {
		cfg.Defaults.Pipeline = y.Bindkit.Defaults.Pipeline
	}
	if y.Bindkit.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *y.Bindkit.Metrics.Enabled
	}
	if y.Bindkit.Metrics.Dir != "" {
		cfg.Metrics.Dir = y.Bindkit.Metrics.Dir
	}
	if y.Bindkit.Paths.PipelinesDir != "" {
		cfg.Paths.PipelinesDir = y.Bindkit.Paths.PipelinesDir
	}
	if y.Bindkit.Paths.EnvironmentsDir != "" {
		cfg.Paths.EnvironmentsDir = y.Bindkit.Paths.EnvironmentsDir
	}
	if y.Bindkit.Paths.RunsDir != "" {
		cfg.Paths.RunsDir = y.Bindkit.Paths.RunsDir
	}
	if y.Bindkit.Paths.ChecksDir != "" {
		cfg.Paths.ChecksDir = y.Bindkit.Paths.ChecksDir
	}

	return cfg, nil
}

type yamlConfig struct {
	Bindkit struct {
		Masking struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"masking"`

		Defaults struct {
			Env      string `yaml:"env"`
			Pipeline string `yaml:"pipeline"`
		} `yaml:"defaults"`

		Metrics struct {
			Enabled *bool  `yaml:"enabled"`
			Dir     string `yaml:"dir"`
		} `yaml:"metrics"`

		Paths struct {
			PipelinesDir    string `yaml:"pipelines_dir"`
			EnvironmentsDir string `yaml:"environments_dir"`
			RunsDir         string `yaml:"runs_dir"`
			ChecksDir       string `yaml:"checks_dir"`
		} `yaml:"paths"`
	} `yaml:"bindkit"`
}
