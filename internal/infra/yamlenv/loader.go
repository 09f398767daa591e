// Package yamlenv loads environment variable files and the optional local
// secrets overlay.
package yamlenv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type Loader struct {
	rootDir     string
	envDir      string
	secretsFile string
}

type Option func(*Loader)

func WithEnvDir(dir string) Option {
	return func(l *Loader) { l.envDir = dir }
}

func WithSecretsFile(name string) Option {
	return func(l *Loader) { l.secretsFile = name }
}

func NewLoader(root string, opts ...Option) *Loader {
	l := &Loader{
		rootDir:     root,
		envDir:      "env",
		secretsFile: "secrets.local.yaml",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ ports.EnvironmentLoader = (*Loader)(nil)
var _ ports.EnvironmentCatalog = (*Loader)(nil)

// LoadEnvironment accepts either an env name (e.g., "dev") or a full path to a YAML file.
func (l *Loader) LoadEnvironment(nameOrPath string) (domain.Environment, error) {
	var envPath string
	var envName string

	if strings.HasSuffix(nameOrPath, ".yaml") || strings.HasSuffix(nameOrPath, ".yml") || strings.Contains(nameOrPath, string(filepath.Separator)) {
		envPath = filepath.Clean(nameOrPath)
		envName = strings.TrimSuffix(filepath.Base(envPath), filepath.Ext(envPath))
	} else {
		envName = nameOrPath
		envPath = filepath.Join(l.rootDir, l.envDir, envName+".yaml")
		if _, err := os.Stat(envPath); err != nil {
			alt := filepath.Join(l.rootDir, l.envDir, envName+".yml")
			if _, altErr := os.Stat(alt); altErr == nil {
				envPath = alt
			}
		}
	}

	base, err := readVars(envPath)
	if err != nil {
		return domain.Environment{}, err
	}

	// Secrets are optional; they override base vars.
	secretsPath := filepath.Join(filepath.Dir(envPath), l.secretsFile)
	secrets, secErr := readVarsOptional(secretsPath)
	if secErr != nil {
		return domain.Environment{}, secErr
	}

	return domain.Environment{
		Name: envName,
		Vars: domain.Merge(base, secrets),
	}, nil
}

// ListEnvironments enumerates the environment files of a workspace. The
// secrets overlay is not an environment and is skipped.
func (l *Loader) ListEnvironments(root string) ([]domain.EnvironmentRef, error) {
	dir := filepath.Join(root, l.envDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlenv.list",
			Kind: domain.KindNotFound,
			Path: dir,
			Err:  err,
		}
	}

	var refs []domain.EnvironmentRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if name == l.secretsFile {
			continue
		}
		refs = append(refs, domain.EnvironmentRef{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

type yamlEnv struct {
	Vars map[string]string `yaml:"vars"`
}

func readVars(path string) (domain.Vars, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlenv.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlEnv
	if err := yaml.Unmarshal(b, &y); err != nil {
		return nil, &domain.OpError{
			Op:   "yamlenv.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	if y.Vars == nil {
		y.Vars = map[string]string{}
	}

	return domain.Vars(y.Vars), nil
}

func readVarsOptional(path string) (domain.Vars, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Vars{}, nil
		}
		return nil, &domain.OpError{
			Op:   "yamlenv.secrets",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	v, err := readVars(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	return v, nil
}
