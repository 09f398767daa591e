package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"bindkit/internal/app/template"
	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type ValidatePipeline struct {
	pipelines ports.PipelineLoader
	envs      ports.EnvironmentLoader
	checkSets ports.CheckSetLoader
	resolver  *domain.VarResolver
}

type ValidateOption func(*ValidatePipeline)

func WithVarResolver(vr *domain.VarResolver) ValidateOption {
	return func(uc *ValidatePipeline) {
		if vr != nil {
			uc.resolver = vr
		}
	}
}

// WithCheckSetCatalog enables validation of checks.use references.
func WithCheckSetCatalog(loader ports.CheckSetLoader) ValidateOption {
	return func(uc *ValidatePipeline) { uc.checkSets = loader }
}

func NewValidatePipeline(pl ports.PipelineLoader, el ports.EnvironmentLoader, opts ...ValidateOption) *ValidatePipeline {
	uc := &ValidatePipeline{
		pipelines: pl,
		envs:      el,
		resolver:  domain.NewVarResolver(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute validates a pipeline + environment pair without running anything.
// It expands the matrix, dry-resolves every (point, job) pair's templated
// fields, compiles every pattern, and verifies check set references.
func (uc *ValidatePipeline) Execute(ctx context.Context, pipelinePath string, envNameOrPath string) error {
	pipeline, err := uc.pipelines.LoadPipeline(pipelinePath)
	if err != nil {
		return err
	}

	env, err := uc.envs.LoadEnvironment(envNameOrPath)
	if err != nil {
		return err
	}

	points, err := domain.ExpandMatrix(pipeline.Axes, pipeline.Include, pipeline.Exclude)
	if err != nil {
		return err
	}

	var sets map[string]domain.ChecksSpec
	if uc.checkSets != nil {
		sets, err = uc.checkSets.LoadCheckSets()
		if err != nil {
			return err
		}
	}

	for _, job := range pipeline.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := uc.validateJobSpec(pipeline, job, sets); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}

	for _, point := range points {
		for _, job := range pipeline.Jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(job.Only) > 0 && !job.Only.Matches(point) {
				continue
			}

			// pipeline vars < environment vars < point values < job env
			vars := domain.MergeAll(pipeline.Vars, env.Vars, point.Values, job.Env)

			rt, err := uc.resolver.NewRuntime(vars, "validate")
			if err != nil {
				return err
			}
			if _, err := template.Job(rt, job); err != nil {
				return fmt.Errorf("job %q (%s): %w", job.Name, point.Key(), err)
			}
		}
	}

	return nil
}

func (uc *ValidatePipeline) validateJobSpec(pipeline domain.Pipeline, job domain.JobSpec, sets map[string]domain.ChecksSpec) error {
	if len(job.Only) > 0 {
		if err := domain.ValidateSelector(pipeline.Axes, job.Only); err != nil {
			return &domain.OpError{
				Op:   "validate.selector",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("only: %w", err),
			}
		}
	}

	if job.Gate.MinVersionProbe != nil && pipeline.Library.MinVersion == "" {
		return &domain.OpError{
			Op:   "validate.gate",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("gate has a version probe but the library declares no min_version"),
		}
	}
	if probe := job.Gate.MinVersionProbe; probe != nil && probe.Pattern != "" {
		if err := compilePattern("gate.min_version_probe.pattern", probe.Pattern); err != nil {
			return err
		}
	}
	for _, p := range job.Gate.SkipWhenOutputMatches {
		if err := compilePattern("gate.skip_when_output_matches", p); err != nil {
			return err
		}
	}

	for _, name := range job.Checks.Use {
		if uc.checkSets == nil {
			return &domain.OpError{
				Op:   "validate.checks",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("checks.use %q: no check set loader is configured", name),
			}
		}
		if _, ok := sets[name]; !ok {
			return &domain.OpError{
				Op:   "validate.checks",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("unknown check set %q", name),
			}
		}
	}

	if sym := job.Checks.Symbols; sym != nil {
		if len(sym.Require) == 0 && len(pipeline.Library.Symbols) == 0 {
			return &domain.OpError{
				Op:   "validate.checks",
				Kind: domain.KindInvalidConfig,
				Err:  errors.New("symbols check has no symbols to require"),
			}
		}
	}
	if rep := job.Checks.Report; rep != nil {
		for expr, rule := range rep.Rules {
			if rule.Matches != nil {
				if err := compilePattern(fmt.Sprintf("checks.report[%s].matches", expr), *rule.Matches); err != nil {
					return err
				}
			}
		}
	}
	if out := job.Checks.Output; out != nil {
		for _, p := range out.Matches {
			if err := compilePattern("checks.output.matches", p); err != nil {
				return err
			}
		}
	}

	return nil
}

func compilePattern(field, pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return &domain.OpError{
			Op:   "validate.pattern",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("%s: invalid regex %q: %v", field, pattern, err),
		}
	}
	return nil
}
