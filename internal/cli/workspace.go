package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bindkit/internal/domain"
	"bindkit/internal/infra/elfinspect"
	"bindkit/internal/infra/execrunner"
	"bindkit/internal/infra/gochecks"
	"bindkit/internal/infra/logger"
	"bindkit/internal/infra/metrics"
	"bindkit/internal/infra/runstore"
	"bindkit/internal/infra/workspacefinder"
	"bindkit/internal/infra/yamlenv"
	"bindkit/internal/infra/yamlmanifest"
	"bindkit/internal/ports"
)

type workspaceCtx struct {
	root string
	cfg  domain.Config

	pipelines ports.PipelineLoader

	envs       ports.EnvironmentLoader
	envCatalog ports.EnvironmentCatalog

	runner    ports.CommandRunner
	inspector ports.ObjectInspector
	store     ports.ArtifactStore
	checkSets ports.CheckSetLoader
	metrics   ports.RunMetrics

	log      *zap.Logger
	closeLog func() error
}

// close flushes the workspace log. Safe on a partially built context.
func (ws *workspaceCtx) close() {
	if ws.closeLog != nil {
		_ = ws.closeLog()
	}
}

func loadWorkspace(cmd *cobra.Command) (*workspaceCtx, error) {
	workspaceFlag, _ := cmd.Flags().GetString("workspace")
	debug, _ := cmd.Flags().GetBool("debug")

	root, err := resolveWorkspaceRoot(workspaceFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := workspacefinder.LoadConfig(root)
	if err != nil {
		return nil, err
	}

	// A broken log file should not block a run; commands keep working on
	// the nop logger.
	cleanup, _ := logger.Setup(logger.Config{Root: root, Debug: debug})

	pipeLoader := yamlmanifest.NewLoader(
		yamlmanifest.WithPipelinesDir(cfg.Paths.PipelinesDir),
	)

	envLoader := yamlenv.NewLoader(
		root,
		yamlenv.WithEnvDir(cfg.Paths.EnvironmentsDir),
	)

	return &workspaceCtx{
		root:       root,
		cfg:        cfg,
		pipelines:  pipeLoader,
		envs:       envLoader,
		envCatalog: envLoader,
		runner:     execrunner.New(),
		inspector:  elfinspect.New(),
		store:      runstore.NewJSONStore(root, cfg, runstore.WithIndex(true)),
		checkSets:  gochecks.NewLoader(root, cfg),
		metrics:    metrics.NewTextfilePublisher(root, cfg),
		log:        logger.L(),
		closeLog:   cleanup,
	}, nil
}

func resolveWorkspaceRoot(workspaceFlag string) (string, error) {
	w := strings.TrimSpace(workspaceFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	locator := workspacefinder.NewFinder()
	root, err := locator.FindRoot(wd)
	if err != nil {
		return "", fmt.Errorf("workspace not found from %q (tip: run `bindkit init`): %w", wd, err)
	}
	return root, nil
}

func resolvePipelinePath(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		in = ws.cfg.Defaults.Pipeline
	}
	if in == "" {
		return "", fmt.Errorf("pipeline is required (use --pipeline or -p, or set defaults.pipeline in bindkit.yaml)")
	}

	// If arg looks like a path (contains separators), resolve relative to workspace root.
	if looksLikePath(in) {
		p := in
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.root, p)
		}
		return filepath.Clean(p), nil
	}

	pipelinesDir := filepath.Join(ws.root, ws.cfg.Paths.PipelinesDir)

	// If user provided "liberfa.yaml", treat it as file under pipelines dir.
	if hasYAMLExt(in) {
		p := filepath.Join(pipelinesDir, in)
		if fileExists(p) {
			return p, nil
		}
	}

	// If user provided "liberfa", try liberfa.yaml / liberfa.yml in pipelines dir.
	p1 := filepath.Join(pipelinesDir, in+".yaml")
	if fileExists(p1) {
		return p1, nil
	}
	p2 := filepath.Join(pipelinesDir, in+".yml")
	if fileExists(p2) {
		return p2, nil
	}

	// As a last resort: match by the manifest's "name" field.
	refs, err := ws.pipelines.ListPipelines(ws.root)
	if err == nil {
		for _, r := range refs {
			if strings.EqualFold(r.Name, in) {
				return r.Path, nil
			}
		}
	}

	return "", fmt.Errorf("pipeline %q not found in %q", in, pipelinesDir)
}

func resolveEnvironmentArg(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return ws.cfg.Defaults.Environment, nil
	}

	// If arg is a path, resolve relative to workspace root.
	if looksLikePath(in) {
		p := in
		if !filepath.IsAbs(p) {
			p = filepath.Join(ws.root, p)
		}
		return filepath.Clean(p), nil
	}

	// If user provided "dev.yaml", treat it as file under env dir.
	if hasYAMLExt(in) {
		envDir := filepath.Join(ws.root, ws.cfg.Paths.EnvironmentsDir)
		p := filepath.Join(envDir, in)
		if fileExists(p) {
			return p, nil
		}
		// fall back to passing as-is (loader will treat it as path-like because of ".yaml")
		return p, nil
	}

	// Otherwise, treat it as an env name ("dev") and let the loader resolve it.
	return in, nil
}

func looksLikePath(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, string(filepath.Separator))
}

func hasYAMLExt(s string) bool {
	ext := strings.ToLower(filepath.Ext(s))
	return ext == ".yaml" || ext == ".yml"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
