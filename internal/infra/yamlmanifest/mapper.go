package yamlmanifest

import (
	"fmt"
	"strings"
	"time"

	"bindkit/internal/domain"
)

func mapAndValidate(path string, yp yamlPipeline) (domain.Pipeline, error) {
	if strings.TrimSpace(yp.Name) == "" {
		return domain.Pipeline{}, invalidField(path, "name", "pipeline name is required")
	}
	if len(yp.Jobs) == 0 {
		return domain.Pipeline{}, invalidField(path, "jobs", "at least one job is required")
	}

	axes := make(domain.Axes, 0, len(yp.Matrix.Axes))
	for _, a := range yp.Matrix.Axes {
		axes = append(axes, domain.Axis{Name: a.Name, Values: a.Values})
	}
	include := make([]domain.Vars, 0, len(yp.Matrix.Include))
	for _, inc := range yp.Matrix.Include {
		include = append(include, domain.Vars(inc))
	}
	exclude := make([]domain.Selector, 0, len(yp.Matrix.Exclude))
	for _, exc := range yp.Matrix.Exclude {
		exclude = append(exclude, mapSelector(exc))
	}

	// Fail at load time for broken matrices (duplicate axes, unknown include
	// keys, malformed excludes), not at run time.
	if _, err := domain.ExpandMatrix(axes, include, exclude); err != nil {
		return domain.Pipeline{}, invalidField(path, "matrix", err.Error())
	}

	p := domain.Pipeline{
		Name: yp.Name,
		Vars: domain.Vars(yp.Vars),
		Library: domain.LibrarySpec{
			Name:         strings.TrimSpace(yp.Library.Name),
			MinVersion:   strings.TrimSpace(yp.Library.MinVersion),
			Symbols:      yp.Library.Symbols,
			SonamePrefix: strings.TrimSpace(yp.Library.SonamePrefix),
		},
		Axes:    axes,
		Include: include,
		Exclude: exclude,
		Jobs:    make([]domain.JobSpec, 0, len(yp.Jobs)),
	}
	if p.Vars == nil {
		p.Vars = domain.Vars{}
	}

	seen := make(map[string]bool, len(yp.Jobs))
	for i, j := range yp.Jobs {
		prefix := fmt.Sprintf("jobs[%d]", i)

		if strings.TrimSpace(j.Name) == "" {
			return domain.Pipeline{}, invalidField(path, prefix+".name", "job name is required")
		}
		if seen[j.Name] {
			return domain.Pipeline{}, invalidField(path, prefix+".name", fmt.Sprintf("duplicate job name %q", j.Name))
		}
		seen[j.Name] = true

		only := mapSelector(j.Only)
		if len(only) > 0 {
			if err := domain.ValidateSelector(axes, only); err != nil {
				return domain.Pipeline{}, invalidField(path, prefix+".only", err.Error())
			}
		}

		timeout, err := parseTimeout(path, prefix+".timeout", j.Timeout)
		if err != nil {
			return domain.Pipeline{}, err
		}

		if len(j.Steps) == 0 {
			return domain.Pipeline{}, invalidField(path, prefix+".steps", "at least one step is required")
		}
		steps := make([]domain.StepSpec, 0, len(j.Steps))
		for si, s := range j.Steps {
			stepPrefix := fmt.Sprintf("%s.steps[%d]", prefix, si)
			if strings.TrimSpace(s.Name) == "" {
				return domain.Pipeline{}, invalidField(path, stepPrefix+".name", "step name is required")
			}
			if strings.TrimSpace(s.Run) == "" {
				return domain.Pipeline{}, invalidField(path, stepPrefix+".run", "step run command is required")
			}
			stepTimeout, err := parseTimeout(path, stepPrefix+".timeout", s.Timeout)
			if err != nil {
				return domain.Pipeline{}, err
			}
			steps = append(steps, domain.StepSpec{
				Name:            s.Name,
				Run:             s.Run,
				Env:             domain.Vars(s.Env),
				Timeout:         stepTimeout,
				ContinueOnError: s.ContinueOnError,
			})
		}

		checks, err := MapChecks(path, prefix+".checks", j.Checks)
		if err != nil {
			return domain.Pipeline{}, err
		}

		gate, err := mapGate(path, prefix+".gate", j.Gate)
		if err != nil {
			return domain.Pipeline{}, err
		}

		p.Jobs = append(p.Jobs, domain.JobSpec{
			Name:    j.Name,
			Only:    only,
			Env:     domain.Vars(j.Env),
			Isolate: j.Isolate,
			Workdir: j.Workdir,
			Timeout: timeout,
			Steps:   steps,
			Checks:  checks,
			Gate:    gate,
		})
	}

	return p, nil
}

// MapChecks validates and maps a checks block. It is shared with the plugin
// loader, which decodes plugin payloads into the same DTO.
func MapChecks(path, field string, yc YAMLChecks) (domain.ChecksSpec, error) {
	out := domain.ChecksSpec{Use: yc.Use}

	for i, name := range yc.Use {
		if strings.TrimSpace(name) == "" {
			return domain.ChecksSpec{}, invalidField(path, fmt.Sprintf("%s.use[%d]", field, i), "check set name is empty")
		}
	}

	if yc.Symbols != nil {
		if strings.TrimSpace(yc.Symbols.Object) == "" {
			return domain.ChecksSpec{}, invalidField(path, field+".symbols.object", "object path is required")
		}
		out.Symbols = &domain.SymbolsCheck{
			Object:  yc.Symbols.Object,
			Require: yc.Symbols.Require,
		}
	}

	if yc.Report != nil {
		if strings.TrimSpace(yc.Report.File) == "" {
			return domain.ChecksSpec{}, invalidField(path, field+".report.file", "report file is required")
		}
		if len(yc.Report.Rules) == 0 {
			return domain.ChecksSpec{}, invalidField(path, field+".report.rules", "at least one rule is required")
		}
		rules := make(map[string]domain.ReportRule, len(yc.Report.Rules))
		for expr, r := range yc.Report.Rules {
			if !r.Exists && r.Eq == nil && r.Contains == nil && r.Matches == nil && r.Gt == nil && r.Lt == nil {
				return domain.ChecksSpec{}, invalidField(path,
					fmt.Sprintf("%s.report.rules[%s]", field, expr), "rule has no assertion")
			}
			rules[expr] = domain.ReportRule{
				Exists:   r.Exists,
				Eq:       r.Eq,
				Contains: r.Contains,
				Matches:  r.Matches,
				Gt:       r.Gt,
				Lt:       r.Lt,
			}
		}
		out.Report = &domain.ReportCheck{File: yc.Report.File, Rules: rules}
	}

	if yc.Output != nil {
		if len(yc.Output.Contains)+len(yc.Output.NotContains)+len(yc.Output.Matches) == 0 {
			return domain.ChecksSpec{}, invalidField(path, field+".output", "output check has no patterns")
		}
		out.Output = &domain.OutputCheck{
			Contains:    yc.Output.Contains,
			NotContains: yc.Output.NotContains,
			Matches:     yc.Output.Matches,
		}
	}

	return out, nil
}

func mapGate(path, field string, yg yamlGate) (domain.GateSpec, error) {
	out := domain.GateSpec{SkipWhenOutputMatches: yg.SkipWhenOutputMatches}
	if yg.MinVersionProbe != nil {
		if strings.TrimSpace(yg.MinVersionProbe.Run) == "" {
			return domain.GateSpec{}, invalidField(path, field+".min_version_probe.run", "probe command is required")
		}
		out.MinVersionProbe = &domain.VersionProbe{
			Run:     yg.MinVersionProbe.Run,
			Pattern: yg.MinVersionProbe.Pattern,
		}
	}
	return out, nil
}

func mapSelector(in map[string]stringOrList) domain.Selector {
	if len(in) == 0 {
		return nil
	}
	out := make(domain.Selector, len(in))
	for k, v := range in {
		out[k] = []string(v)
	}
	return out
}

func parseTimeout(path, field, raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, invalidField(path, field, fmt.Sprintf("invalid duration %q", raw))
	}
	if d <= 0 {
		return 0, invalidField(path, field, "timeout must be positive")
	}
	return d, nil
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "yamlmanifest.validate",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s", field, msg),
	}
}
