package domain

// Config represents the minimal bindkit configuration loaded from bindkit.yaml.
type Config struct {
	Masking  MaskingConfig
	Defaults DefaultsConfig
	Metrics  MetricsConfig
	Paths    PathsConfig
}

type MaskingConfig struct {
	Enabled bool
}

type DefaultsConfig struct {
	Environment string
	Pipeline    string
}

type MetricsConfig struct {
	Enabled bool
	Dir     string
}

type PathsConfig struct {
	PipelinesDir    string
	EnvironmentsDir string
	RunsDir         string
	ChecksDir       string
}

// DefaultConfig provides sane defaults if bindkit.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Masking: MaskingConfig{Enabled: true},
		Defaults: DefaultsConfig{
			Environment: "dev",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Dir:     ".bindkit/metrics",
		},
		Paths: PathsConfig{
			PipelinesDir:    "pipelines",
			EnvironmentsDir: "env",
			RunsDir:         "runs",
			ChecksDir:       "checks",
		},
	}
}
