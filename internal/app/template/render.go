// Package template applies {{var}} resolution across whole job specs,
// returning copies with every templated field replaced.
package template

import (
	"fmt"

	"bindkit/internal/domain"
)

// Job resolves placeholders in every templated field of the job: step
// commands, env values, workdir, check targets and gate patterns.
// It returns a copy and does not mutate the input.
func Job(rt *domain.RuntimeResolver, job domain.JobSpec) (domain.JobSpec, error) {
	out := job

	wd, err := rt.ResolveString(job.Workdir)
	if err != nil {
		return domain.JobSpec{}, wrapField(err, "job.workdir")
	}
	out.Workdir = wd

	env, err := rt.ResolveVars(job.Env)
	if err != nil {
		return domain.JobSpec{}, wrapField(err, "job.env")
	}
	out.Env = env

	out.Steps = make([]domain.StepSpec, 0, len(job.Steps))
	for i, s := range job.Steps {
		rs, err := Step(rt, s)
		if err != nil {
			return domain.JobSpec{}, wrapField(err, fmt.Sprintf("steps[%d]", i))
		}
		out.Steps = append(out.Steps, rs)
	}

	checks, err := resolveChecks(rt, job.Checks)
	if err != nil {
		return domain.JobSpec{}, wrapField(err, "job.checks")
	}
	out.Checks = checks

	gate, err := resolveGate(rt, job.Gate)
	if err != nil {
		return domain.JobSpec{}, wrapField(err, "job.gate")
	}
	out.Gate = gate

	return out, nil
}

// Step resolves placeholders in a single step's command and env values.
func Step(rt *domain.RuntimeResolver, step domain.StepSpec) (domain.StepSpec, error) {
	out := step

	run, err := rt.ResolveString(step.Run)
	if err != nil {
		return domain.StepSpec{}, wrapField(err, "run")
	}
	out.Run = run

	env, err := rt.ResolveVars(step.Env)
	if err != nil {
		return domain.StepSpec{}, wrapField(err, "env")
	}
	out.Env = env

	return out, nil
}

func resolveChecks(rt *domain.RuntimeResolver, checks domain.ChecksSpec) (domain.ChecksSpec, error) {
	out := checks

	if checks.Symbols != nil {
		c := *checks.Symbols
		obj, err := rt.ResolveString(c.Object)
		if err != nil {
			return domain.ChecksSpec{}, err
		}
		c.Object = obj
		req, err := rt.ResolveStrings(c.Require)
		if err != nil {
			return domain.ChecksSpec{}, err
		}
		c.Require = req
		out.Symbols = &c
	}

	if checks.Report != nil {
		c := *checks.Report
		file, err := rt.ResolveString(c.File)
		if err != nil {
			return domain.ChecksSpec{}, err
		}
		c.File = file

		rules := make(map[string]domain.ReportRule, len(c.Rules))
		for expr, rule := range c.Rules {
			rr, err := resolveRule(rt, rule)
			if err != nil {
				return domain.ChecksSpec{}, fmt.Errorf("rule %q: %w", expr, err)
			}
			rules[expr] = rr
		}
		c.Rules = rules
		out.Report = &c
	}

	if checks.Output != nil {
		c := *checks.Output
		var err error
		if c.Contains, err = rt.ResolveStrings(c.Contains); err != nil {
			return domain.ChecksSpec{}, err
		}
		if c.NotContains, err = rt.ResolveStrings(c.NotContains); err != nil {
			return domain.ChecksSpec{}, err
		}
		if c.Matches, err = rt.ResolveStrings(c.Matches); err != nil {
			return domain.ChecksSpec{}, err
		}
		out.Output = &c
	}

	return out, nil
}

func resolveRule(rt *domain.RuntimeResolver, rule domain.ReportRule) (domain.ReportRule, error) {
	out := rule
	resolve := func(v *string) (*string, error) {
		if v == nil {
			return nil, nil
		}
		rv, err := rt.ResolveString(*v)
		if err != nil {
			return nil, err
		}
		return &rv, nil
	}

	var err error
	if out.Eq, err = resolve(rule.Eq); err != nil {
		return domain.ReportRule{}, err
	}
	if out.Contains, err = resolve(rule.Contains); err != nil {
		return domain.ReportRule{}, err
	}
	if out.Matches, err = resolve(rule.Matches); err != nil {
		return domain.ReportRule{}, err
	}
	return out, nil
}

func resolveGate(rt *domain.RuntimeResolver, gate domain.GateSpec) (domain.GateSpec, error) {
	out := gate

	patterns, err := rt.ResolveStrings(gate.SkipWhenOutputMatches)
	if err != nil {
		return domain.GateSpec{}, err
	}
	out.SkipWhenOutputMatches = patterns

	if gate.MinVersionProbe != nil {
		p := *gate.MinVersionProbe
		run, err := rt.ResolveString(p.Run)
		if err != nil {
			return domain.GateSpec{}, err
		}
		p.Run = run
		out.MinVersionProbe = &p
	}

	return out, nil
}

func wrapField(err error, field string) error {
	return &domain.OpError{
		Op:   "template.render",
		Kind: domain.KindOf(err),
		Err:  fmt.Errorf("%s: %w", field, err),
	}
}
