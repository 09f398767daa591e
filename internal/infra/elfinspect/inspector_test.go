package elfinspect

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bindkit/internal/domain"
)

// testdata/liberfa.so.1.7.3 is a minimal shared object built with
//
//	gcc -shared -fPIC -Wl,-soname,liberfa.so.1.7.3 -o liberfa.so.1.7.3 liberfa.c
//
// exporting eraA2af, eraD2tf and era_use_helper.
const fixture = "testdata/liberfa.so.1.7.3"

func TestInspect_ClassifiesSymbols(t *testing.T) {
	inspector := New()

	report, err := inspector.Inspect(fixture, []string{"eraA2af", "eraD2tf", "eraTf2d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Path != fixture {
		t.Fatalf("expected path %q, got %q", fixture, report.Path)
	}
	if want := []string{"eraA2af", "eraD2tf"}; !reflect.DeepEqual(report.Present, want) {
		t.Fatalf("expected present %v, got %v", want, report.Present)
	}
	if want := []string{"eraTf2d"}; !reflect.DeepEqual(report.Missing, want) {
		t.Fatalf("expected missing %v, got %v", want, report.Missing)
	}
	if report.Complete() {
		t.Fatal("expected report with missing symbols to be incomplete")
	}
}

func TestInspect_ReadsSoname(t *testing.T) {
	inspector := New()

	report, err := inspector.Inspect(fixture, []string{"eraA2af"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SONAME != "liberfa.so.1.7.3" {
		t.Fatalf("expected soname liberfa.so.1.7.3, got %q", report.SONAME)
	}
	if report.SonameVersion != "1.7.3" {
		t.Fatalf("expected soname version 1.7.3, got %q", report.SonameVersion)
	}
	if !report.Complete() {
		t.Fatalf("expected complete report, missing %v", report.Missing)
	}
}

func TestInspect_StaticSymbolsAreNotExported(t *testing.T) {
	inspector := New()

	report, err := inspector.Inspect(fixture, []string{"internal_helper"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "internal_helper" {
		t.Fatalf("expected internal_helper to be missing, got %v", report.Missing)
	}
}

func TestInspect_MissingFile(t *testing.T) {
	inspector := New()

	_, err := inspector.Inspect(filepath.Join(t.TempDir(), "nope.so"), []string{"eraA2af"})
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestInspect_NotAnELF(t *testing.T) {
	inspector := New()
	path := filepath.Join(t.TempDir(), "not-elf.so")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := inspector.Inspect(path, []string{"eraA2af"})
	if err == nil {
		t.Fatal("expected an error for a non-ELF file")
	}
	if domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected a parse failure, not a missing file: %v", err)
	}
}

func TestSonameVersion(t *testing.T) {
	cases := []struct {
		soname string
		want   string
	}{
		{"liberfa.so.1", "1"},
		{"liberfa.so.1.7.3", "1.7.3"},
		{"liberfa.so", ""},
		{"liberfa.dylib", ""},
		{"liberfa.so.", ""},
		{"liberfa.so.1.beta", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sonameVersion(tc.soname); got != tc.want {
			t.Errorf("sonameVersion(%q) = %q, want %q", tc.soname, got, tc.want)
		}
	}
}
