package domain

import (
	"strings"
	"testing"
	"time"
)

func fixedResolver() *VarResolver {
	return NewVarResolver(
		WithNow(func() time.Time { return time.Unix(1700000000, 0) }),
		WithUUID(func() (string, error) { return "11111111-2222-3333-4444-555555555555", nil }),
	)
}

func TestResolveString_Basic(t *testing.T) {
	rt, err := fixedResolver().NewRuntime(Vars{"toxenv": "py311-test"}, "run-1")
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	got, err := rt.ResolveString("tox -e {{toxenv}}")
	if err != nil {
		t.Fatalf("ResolveString: %v", err)
	}
	if got != "tox -e py311-test" {
		t.Fatalf("expected substitution, got %q", got)
	}
}

func TestResolveString_Builtins(t *testing.T) {
	rt, err := fixedResolver().NewRuntime(Vars{}, "run-9")
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	got, err := rt.ResolveString("{{$timestamp}}/{{$uuid}}/{{$runid}}")
	if err != nil {
		t.Fatalf("ResolveString: %v", err)
	}
	if got != "1700000000/11111111-2222-3333-4444-555555555555/run-9" {
		t.Fatalf("unexpected builtins expansion: %q", got)
	}
}

func TestResolveString_MissingVar(t *testing.T) {
	rt, _ := fixedResolver().NewRuntime(Vars{}, "run-1")

	_, err := rt.ResolveString("{{nope}}")
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !IsKind(err, KindMissingVar) {
		t.Fatalf("expected missing_variable kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected variable name in error, got %q", err.Error())
	}
}

func TestResolveString_UnclosedPlaceholder(t *testing.T) {
	rt, _ := fixedResolver().NewRuntime(Vars{"a": "1"}, "run-1")

	_, err := rt.ResolveString("{{a")
	if err == nil {
		t.Fatal("expected error for unclosed placeholder")
	}
	if !IsKind(err, KindInvalidConfig) {
		t.Fatalf("expected invalid_config kind, got %v", err)
	}
}

func TestResolveString_EmptyPlaceholder(t *testing.T) {
	rt, _ := fixedResolver().NewRuntime(Vars{}, "run-1")

	if _, err := rt.ResolveString("{{  }}"); err == nil {
		t.Fatal("expected error for empty placeholder")
	}
}

func TestResolveVars_SinglePass(t *testing.T) {
	rt, _ := fixedResolver().NewRuntime(Vars{
		"inner": "{{outer}}",
		"outer": "x",
	}, "run-1")

	got, err := rt.ResolveVars(Vars{"v": "{{inner}}"})
	if err != nil {
		t.Fatalf("ResolveVars: %v", err)
	}
	// Substituted values are not rescanned.
	if got["v"] != "{{outer}}" {
		t.Fatalf("expected single-pass substitution, got %q", got["v"])
	}
}

func TestResolveStrings(t *testing.T) {
	rt, _ := fixedResolver().NewRuntime(Vars{"lib": "erfa"}, "run-1")

	got, err := rt.ResolveStrings([]string{"lib{{lib}}.so", "plain"})
	if err != nil {
		t.Fatalf("ResolveStrings: %v", err)
	}
	if got[0] != "liberfa.so" || got[1] != "plain" {
		t.Fatalf("unexpected resolution: %v", got)
	}
}

func TestNewRuntime_CopiesVars(t *testing.T) {
	vars := Vars{"a": "1"}
	rt, _ := fixedResolver().NewRuntime(vars, "run-1")

	vars["a"] = "mutated"
	got, err := rt.ResolveString("{{a}}")
	if err != nil {
		t.Fatalf("ResolveString: %v", err)
	}
	if got != "1" {
		t.Fatalf("expected runtime snapshot to be isolated, got %q", got)
	}
}
