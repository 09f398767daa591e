package domain

import "testing"

func fingerprintFixture() (Point, JobSpec) {
	point := Point{
		Axes:   []string{"arch", "setup"},
		Values: Vars{"arch": "s390x", "setup": "system"},
	}
	job := JobSpec{
		Name: "test",
		Env:  Vars{"B": "2", "A": "1"},
		Steps: []StepSpec{
			{Name: "build", Run: "make all"},
			{Name: "check", Run: "make check"},
		},
		Checks: ChecksSpec{
			Symbols: &SymbolsCheck{Object: "build/liberfa.so", Require: []string{"eraA2af"}},
		},
	}
	return point, job
}

func TestJobFingerprint_Stable(t *testing.T) {
	point, job := fingerprintFixture()

	a := JobFingerprint(point, job)
	b := JobFingerprint(point, job)
	if a != b {
		t.Fatalf("expected identical fingerprints, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestJobFingerprint_EnvOrderIndependent(t *testing.T) {
	point, job := fingerprintFixture()
	a := JobFingerprint(point, job)

	job.Env = Vars{"A": "1", "B": "2"}
	b := JobFingerprint(point, job)
	if a != b {
		t.Fatal("expected env insertion order not to affect the fingerprint")
	}
}

func TestJobFingerprint_SensitiveToCommands(t *testing.T) {
	point, job := fingerprintFixture()
	a := JobFingerprint(point, job)

	job.Steps[1].Run = "make check-all"
	b := JobFingerprint(point, job)
	if a == b {
		t.Fatal("expected command change to alter the fingerprint")
	}
}

func TestJobFingerprint_SensitiveToPoint(t *testing.T) {
	point, job := fingerprintFixture()
	a := JobFingerprint(point, job)

	point.Values["arch"] = "amd64"
	b := JobFingerprint(point, job)
	if a == b {
		t.Fatal("expected point change to alter the fingerprint")
	}
}
