package template

import (
	"strings"
	"testing"
	"time"

	"bindkit/internal/domain"
)

func runtimeWith(t *testing.T, vars domain.Vars) *domain.RuntimeResolver {
	t.Helper()
	r := domain.NewVarResolver(
		domain.WithNow(func() time.Time { return time.Unix(1700000000, 0) }),
		domain.WithUUID(func() (string, error) { return "fixed-uuid", nil }),
	)
	rt, err := r.NewRuntime(vars, "run-1")
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

func TestJob_ResolvesAllFields(t *testing.T) {
	rt := runtimeWith(t, domain.Vars{
		"src":    "erfa",
		"object": "build/liberfa.so",
		"sym":    "eraA2af",
	})

	job := domain.JobSpec{
		Name:    "build",
		Workdir: "{{src}}",
		Env:     domain.Vars{"TOXENV": "py311-{{src}}"},
		Steps: []domain.StepSpec{
			{Name: "build", Run: "make -C {{src}} all", Env: domain.Vars{"V": "{{src}}"}},
		},
		Checks: domain.ChecksSpec{
			Symbols: &domain.SymbolsCheck{Object: "{{object}}", Require: []string{"{{sym}}"}},
			Output:  &domain.OutputCheck{Contains: []string{"{{src}} ok"}},
		},
		Gate: domain.GateSpec{
			SkipWhenOutputMatches: []string{"{{src}} too old"},
			MinVersionProbe:       &domain.VersionProbe{Run: "pkg-config --modversion {{src}}"},
		},
	}

	got, err := Job(rt, job)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}

	if got.Workdir != "erfa" {
		t.Fatalf("workdir not resolved: %q", got.Workdir)
	}
	if got.Env["TOXENV"] != "py311-erfa" {
		t.Fatalf("env not resolved: %q", got.Env["TOXENV"])
	}
	if got.Steps[0].Run != "make -C erfa all" {
		t.Fatalf("step run not resolved: %q", got.Steps[0].Run)
	}
	if got.Steps[0].Env["V"] != "erfa" {
		t.Fatalf("step env not resolved: %q", got.Steps[0].Env["V"])
	}
	if got.Checks.Symbols.Object != "build/liberfa.so" {
		t.Fatalf("symbols object not resolved: %q", got.Checks.Symbols.Object)
	}
	if got.Checks.Symbols.Require[0] != "eraA2af" {
		t.Fatalf("symbols require not resolved: %q", got.Checks.Symbols.Require[0])
	}
	if got.Checks.Output.Contains[0] != "erfa ok" {
		t.Fatalf("output check not resolved: %q", got.Checks.Output.Contains[0])
	}
	if got.Gate.SkipWhenOutputMatches[0] != "erfa too old" {
		t.Fatalf("gate pattern not resolved: %q", got.Gate.SkipWhenOutputMatches[0])
	}
	if got.Gate.MinVersionProbe.Run != "pkg-config --modversion erfa" {
		t.Fatalf("probe run not resolved: %q", got.Gate.MinVersionProbe.Run)
	}
}

func TestJob_DoesNotMutateInput(t *testing.T) {
	rt := runtimeWith(t, domain.Vars{"src": "erfa"})

	job := domain.JobSpec{
		Name:  "build",
		Steps: []domain.StepSpec{{Name: "s", Run: "echo {{src}}"}},
	}

	if _, err := Job(rt, job); err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.Steps[0].Run != "echo {{src}}" {
		t.Fatalf("input mutated: %q", job.Steps[0].Run)
	}
}

func TestJob_MissingVarNamesField(t *testing.T) {
	rt := runtimeWith(t, domain.Vars{})

	job := domain.JobSpec{
		Name:  "build",
		Steps: []domain.StepSpec{{Name: "s", Run: "echo {{missing}}"}},
	}

	_, err := Job(rt, job)
	if err == nil {
		t.Fatal("expected missing variable error")
	}
	if !domain.IsKind(err, domain.KindMissingVar) {
		t.Fatalf("expected missing_variable kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "steps[0]") {
		t.Fatalf("expected field context in error, got %q", err.Error())
	}
}

func TestStep_ResolvesRunAndEnv(t *testing.T) {
	rt := runtimeWith(t, domain.Vars{"flag": "-v"})

	got, err := Step(rt, domain.StepSpec{Run: "tox {{flag}}", Env: domain.Vars{"ARGS": "{{flag}}"}})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got.Run != "tox -v" || got.Env["ARGS"] != "-v" {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestJob_ResolvesReportRules(t *testing.T) {
	rt := runtimeWith(t, domain.Vars{"expected": "ok"})

	eq := "{{expected}}"
	job := domain.JobSpec{
		Name: "test",
		Checks: domain.ChecksSpec{
			Report: &domain.ReportCheck{
				File:  "report.json",
				Rules: map[string]domain.ReportRule{"$.status": {Eq: &eq}},
			},
		},
	}

	got, err := Job(rt, job)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if *got.Checks.Report.Rules["$.status"].Eq != "ok" {
		t.Fatalf("rule not resolved: %+v", got.Checks.Report.Rules)
	}
	// Original rule untouched.
	if *job.Checks.Report.Rules["$.status"].Eq != "{{expected}}" {
		t.Fatal("input rule mutated")
	}
}
