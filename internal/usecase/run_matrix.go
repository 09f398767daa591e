package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"bindkit/internal/app/template"
	"bindkit/internal/domain"
	"bindkit/internal/ports"
	ucchecks "bindkit/internal/usecase/checks"
	ucgate "bindkit/internal/usecase/gate"
)

// RunMatrix expands a pipeline's job matrix and executes every selected
// (point, job) pair, applying gates and checks, and persists the artifact
// when a store is configured.
type RunMatrix struct {
	pipelines ports.PipelineLoader
	envs      ports.EnvironmentLoader
	runner    ports.CommandRunner
	inspector ports.ObjectInspector
	store     ports.ArtifactStore
	checkSets ports.CheckSetLoader
	resolver  *domain.VarResolver
	newRunID  func() string
}

// RunMatrixOption configures optional collaborators.
type RunMatrixOption func(*RunMatrix)

// WithCheckSets wires the plugin check-set loader.
func WithCheckSets(loader ports.CheckSetLoader) RunMatrixOption {
	return func(uc *RunMatrix) { uc.checkSets = loader }
}

// WithResolver overrides the variable resolver (useful for tests).
func WithResolver(r *domain.VarResolver) RunMatrixOption {
	return func(uc *RunMatrix) { uc.resolver = r }
}

// WithRunID overrides run ID generation (useful for tests).
func WithRunID(gen func() string) RunMatrixOption {
	return func(uc *RunMatrix) { uc.newRunID = gen }
}

func NewRunMatrix(pl ports.PipelineLoader, el ports.EnvironmentLoader, runner ports.CommandRunner, inspector ports.ObjectInspector, store ports.ArtifactStore, opts ...RunMatrixOption) *RunMatrix {
	uc := &RunMatrix{
		pipelines: pl,
		envs:      el,
		runner:    runner,
		inspector: inspector,
		store:     store,
		resolver:  domain.NewVarResolver(),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RunMatrixInput selects what to run and how.
type RunMatrixInput struct {
	PipelinePath string
	Environment  string
	Root         string
	Only         domain.Selector
	Jobs         []string
	Workers      int
	Events       chan<- domain.RunEvent
}

// planEntry is one scheduled (point, job) pair.
type planEntry struct {
	point domain.Point
	job   domain.JobSpec
}

// Execute runs the full plan. On context cancellation it returns the partial
// artifact together with the context error; jobs that never started are not
// part of the artifact. The returned id is empty when no store is configured.
func (uc *RunMatrix) Execute(ctx context.Context, in RunMatrixInput) (domain.RunArtifact, string, error) {
	pipeline, err := uc.pipelines.LoadPipeline(in.PipelinePath)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	env, err := uc.envs.LoadEnvironment(in.Environment)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	plan, err := uc.buildPlan(pipeline, in)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	sets, err := uc.loadCheckSets(plan)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	run := domain.RunArtifact{
		ID:              uc.newRunID(),
		PipelineName:    pipeline.Name,
		PipelinePath:    in.PipelinePath,
		EnvironmentName: env.Name,
		StartedAt:       time.Now(),
	}

	results, ctxErr := uc.executePlan(ctx, pipeline, env, plan, sets, run.ID, in)
	run.Jobs = results
	run.EndedAt = time.Now()

	if ctxErr != nil {
		return run, "", ctxErr
	}

	if uc.store == nil {
		return run, "", nil
	}
	id, err := uc.store.SaveRun(run)
	if err != nil {
		return run, "", fmt.Errorf("save run: %w", err)
	}
	return run, id, nil
}

func (uc *RunMatrix) buildPlan(pipeline domain.Pipeline, in RunMatrixInput) ([]planEntry, error) {
	points, err := domain.ExpandMatrix(pipeline.Axes, pipeline.Include, pipeline.Exclude)
	if err != nil {
		return nil, err
	}

	if len(in.Only) > 0 {
		if err := domain.ValidateSelector(pipeline.Axes, in.Only); err != nil {
			return nil, &domain.OpError{
				Op:   "run.plan",
				Kind: domain.KindInvalidConfig,
				Path: in.PipelinePath,
				Err:  fmt.Errorf("only selector: %w", err),
			}
		}
		filtered := points[:0]
		for _, p := range points {
			if in.Only.Matches(p) {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}

	wanted, err := jobFilter(pipeline, in.Jobs)
	if err != nil {
		return nil, err
	}

	var plan []planEntry
	for _, p := range points {
		for _, job := range pipeline.Jobs {
			if wanted != nil && !wanted[job.Name] {
				continue
			}
			if len(job.Only) > 0 && !job.Only.Matches(p) {
				continue
			}
			plan = append(plan, planEntry{point: p, job: job})
		}
	}

	if len(plan) == 0 {
		return nil, &domain.OpError{
			Op:   "run.plan",
			Kind: domain.KindInvalidConfig,
			Path: in.PipelinePath,
			Err:  errors.New("no job matches the selected matrix"),
		}
	}
	return plan, nil
}

// jobFilter validates requested job names against the pipeline and returns
// the set to keep, or nil when no filter applies.
func jobFilter(pipeline domain.Pipeline, names []string) (map[string]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	declared := map[string]bool{}
	for _, job := range pipeline.Jobs {
		declared[job.Name] = true
	}
	wanted := map[string]bool{}
	for _, name := range names {
		if !declared[name] {
			return nil, &domain.OpError{
				Op:   "run.plan",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("no job named %q in pipeline %q", name, pipeline.Name),
			}
		}
		wanted[name] = true
	}
	return wanted, nil
}

func (uc *RunMatrix) loadCheckSets(plan []planEntry) (map[string]domain.ChecksSpec, error) {
	names := map[string]bool{}
	for _, entry := range plan {
		for _, name := range entry.job.Checks.Use {
			names[name] = true
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	if uc.checkSets == nil {
		return nil, &domain.OpError{
			Op:   "run.checks",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("pipeline references check sets but no plugin loader is configured"),
		}
	}

	sets, err := uc.checkSets.LoadCheckSets()
	if err != nil {
		return nil, err
	}
	for name := range names {
		if _, ok := sets[name]; !ok {
			return nil, &domain.OpError{
				Op:   "run.checks",
				Kind: domain.KindInvalidConfig,
				Err:  fmt.Errorf("unknown check set %q", name),
			}
		}
	}
	return sets, nil
}

// executePlan dispatches plan entries to a bounded worker pool. Results keep
// plan order regardless of completion order; entries that never started
// because of cancellation are dropped.
func (uc *RunMatrix) executePlan(ctx context.Context, pipeline domain.Pipeline, env domain.Environment, plan []planEntry, sets map[string]domain.ChecksSpec, runID string, in RunMatrixInput) ([]domain.JobResult, error) {
	workers := in.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(plan) {
		workers = len(plan)
	}

	type indexed struct {
		idx   int
		entry planEntry
	}

	workCh := make(chan indexed)
	results := make([]domain.JobResult, len(plan))
	ran := make([]bool, len(plan))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				// Entries dispatched in the same instant the context died
				// are dropped, not run.
				if ctx.Err() != nil {
					continue
				}
				ran[w.idx] = true

				uc.emit(ctx, in.Events, domain.RunEvent{
					Type:     domain.EventJobStarted,
					JobName:  w.entry.job.Name,
					PointKey: w.entry.point.Key(),
					Index:    w.idx + 1,
					Total:    len(plan),
				})

				res := uc.runJob(ctx, pipeline, env, w.entry, sets, runID, in.Root)
				results[w.idx] = res

				uc.emit(ctx, in.Events, domain.RunEvent{
					Type:       domain.EventJobFinished,
					JobName:    res.JobName,
					PointKey:   res.PointKey,
					Index:      w.idx + 1,
					Total:      len(plan),
					Status:     res.Status,
					SkipReason: res.SkipReason,
					DurationMS: res.EndedAt.Sub(res.StartedAt).Milliseconds(),
				})
			}
		}()
	}

	var ctxErr error
dispatch:
	for i, entry := range plan {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case workCh <- indexed{idx: i, entry: entry}:
		}
	}
	close(workCh)
	wg.Wait()

	if ctxErr == nil {
		ctxErr = ctx.Err()
	}

	out := make([]domain.JobResult, 0, len(plan))
	for i := range results {
		if ran[i] {
			out = append(out, results[i])
		}
	}
	return out, ctxErr
}

// runJob executes one (point, job) pair: resolve placeholders, evaluate the
// version gate, run steps, then evaluate checks.
func (uc *RunMatrix) runJob(ctx context.Context, pipeline domain.Pipeline, env domain.Environment, entry planEntry, sets map[string]domain.ChecksSpec, runID, root string) domain.JobResult {
	point, job := entry.point, entry.job

	result := domain.JobResult{
		JobName:     job.Name,
		PointKey:    point.Key(),
		Point:       domain.Merge(point.Values, nil),
		Fingerprint: domain.JobFingerprint(point, job),
		StartedAt:   time.Now(),
	}
	fail := func(err error) domain.JobResult {
		result.Status = domain.StatusFailed
		result.Error = domain.NewRunError(err)
		result.EndedAt = time.Now()
		return result
	}

	// pipeline vars < environment vars < point values < job env
	base := domain.MergeAll(pipeline.Vars, env.Vars, point.Values, job.Env)

	rt, err := uc.resolver.NewRuntime(base, runID)
	if err != nil {
		return fail(err)
	}
	resolved, err := template.Job(rt, job)
	if err != nil {
		return fail(fmt.Errorf("job %q: %w", job.Name, err))
	}
	resolvedBase, err := rt.ResolveVars(base)
	if err != nil {
		return fail(fmt.Errorf("job %q: %w", job.Name, err))
	}

	jobEnv := domain.MergeAll(resolvedBase, resolved.Env)
	result.Env = jobEnv

	workdir := root
	if resolved.Workdir != "" {
		if filepath.IsAbs(resolved.Workdir) {
			workdir = resolved.Workdir
		} else {
			workdir = filepath.Join(root, resolved.Workdir)
		}
	}

	if probe := resolved.Gate.MinVersionProbe; probe != nil {
		decision, err := ucgate.Probe(ctx, uc.runner, *probe, pipeline.Library.MinVersion, workdir, envPairs(jobEnv))
		if err != nil {
			return fail(fmt.Errorf("job %q: %w", job.Name, err))
		}
		if decision.Skip {
			result.Status = domain.StatusSkipped
			result.SkipReason = decision.Reason
			result.EndedAt = time.Now()
			return result
		}
	}

	jobCtx := ctx
	if resolved.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, resolved.Timeout)
		defer cancel()
	}

	var combined []byte
	for _, step := range resolved.Steps {
		stepEnv := domain.MergeAll(jobEnv, step.Env)

		outcome, runErr := uc.runner.Run(jobCtx, domain.CommandSpec{
			Command:    step.Run,
			Dir:        workdir,
			Env:        envPairs(stepEnv),
			InheritEnv: !resolved.Isolate,
			Timeout:    step.Timeout,
		})

		stepResult := domain.StepResult{
			Name:       step.Name,
			Command:    step.Run,
			ExitCode:   outcome.ExitCode,
			DurationMS: outcome.DurationMS,
			Output: domain.OutputSnapshot{
				Stdout:    string(outcome.Stdout),
				Stderr:    string(outcome.Stderr),
				Truncated: outcome.Truncated,
			},
			Error: domain.NewRunError(runErr),
		}
		result.Steps = append(result.Steps, stepResult)

		if len(outcome.Stdout)+len(outcome.Stderr) > 0 {
			if len(combined) > 0 {
				combined = append(combined, '\n')
			}
			combined = append(combined, []byte(stepResult.Output.Combined())...)
		}

		if !stepResult.Failed() || step.ContinueOnError {
			continue
		}

		// A failing step may mean the installed library is just too old.
		decision, gateErr := ucgate.OutputSkip(resolved.Gate.SkipWhenOutputMatches, []byte(stepResult.Output.Combined()))
		if gateErr != nil {
			return fail(fmt.Errorf("job %q: %w", job.Name, gateErr))
		}
		if decision.Skip {
			result.Status = domain.StatusSkipped
			result.SkipReason = decision.Reason
			result.EndedAt = time.Now()
			return result
		}

		result.Status = domain.StatusFailed
		if runErr != nil {
			result.Error = domain.NewRunError(fmt.Errorf("step %q: %w", step.Name, runErr))
		}
		result.EndedAt = time.Now()
		return result
	}

	checksSpec := mergeCheckSets(resolved.Checks, sets)
	if checksSpec.Symbols != nil && len(checksSpec.Symbols.Require) == 0 {
		withDefaults := *checksSpec.Symbols
		withDefaults.Require = pipeline.Library.Symbols
		checksSpec.Symbols = &withDefaults
	}

	result.Checks = ucchecks.Evaluate(checksSpec, ucchecks.Target{
		Dir:       workdir,
		Output:    combined,
		Inspector: uc.inspector,
	})

	if ucchecks.Failed(result.Checks) > 0 {
		result.Status = domain.StatusFailed
	} else {
		result.Status = domain.StatusPassed
	}
	result.EndedAt = time.Now()
	return result
}

func (uc *RunMatrix) emit(ctx context.Context, ch chan<- domain.RunEvent, ev domain.RunEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// mergeCheckSets layers referenced plugin check sets under the inline spec.
// Later references override earlier ones; inline sections win over all.
func mergeCheckSets(inline domain.ChecksSpec, sets map[string]domain.ChecksSpec) domain.ChecksSpec {
	if len(inline.Use) == 0 {
		return inline
	}

	var out domain.ChecksSpec
	for _, name := range inline.Use {
		set, ok := sets[name]
		if !ok {
			continue
		}
		if set.Symbols != nil {
			out.Symbols = set.Symbols
		}
		if set.Report != nil {
			out.Report = set.Report
		}
		if set.Output != nil {
			out.Output = set.Output
		}
	}
	if inline.Symbols != nil {
		out.Symbols = inline.Symbols
	}
	if inline.Report != nil {
		out.Report = inline.Report
	}
	if inline.Output != nil {
		out.Output = inline.Output
	}
	return out
}

func envPairs(vars domain.Vars) []string {
	keys := domain.SortedKeys(vars)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
