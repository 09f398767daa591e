// Package yamlmanifest loads pipeline manifests from YAML files.
package yamlmanifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type Loader struct {
	pipelinesDir string
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{pipelinesDir: "pipelines"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type Option func(*Loader)

func WithPipelinesDir(dir string) Option {
	return func(l *Loader) { l.pipelinesDir = dir }
}

var _ ports.PipelineLoader = (*Loader)(nil)

func (l *Loader) LoadPipeline(path string) (domain.Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Pipeline{}, &domain.OpError{
			Op:   "yamlmanifest.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var yp yamlPipeline
	if err := yaml.Unmarshal(b, &yp); err != nil {
		return domain.Pipeline{}, &domain.OpError{
			Op:   "yamlmanifest.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return mapAndValidate(path, yp)
}

func (l *Loader) ListPipelines(root string) ([]domain.PipelineRef, error) {
	dir := filepath.Join(root, l.pipelinesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlmanifest.list",
			Kind: domain.KindNotFound,
			Path: dir,
			Err:  err,
		}
	}

	var refs []domain.PipelineRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		p := filepath.Join(dir, name)
		n, _ := readPipelineName(p)
		if strings.TrimSpace(n) == "" {
			n = strings.TrimSuffix(name, filepath.Ext(name))
		}

		refs = append(refs, domain.PipelineRef{Name: n, Path: p})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func readPipelineName(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var v struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(b, &v); err != nil {
		return "", err
	}
	return v.Name, nil
}
