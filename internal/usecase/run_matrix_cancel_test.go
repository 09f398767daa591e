package usecase

import (
	"context"
	"errors"
	"testing"

	"bindkit/internal/domain"
)

func TestRunMatrix_StopsOnContextCancel(t *testing.T) {
	runner := &countingRunner{}
	uc := newRunMatrix(testPipeline(), runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, id, err := uc.Execute(ctx, RunMatrixInput{
		PipelinePath: "pipelines/liberfa.yaml",
		Environment:  "dev",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if id != "" {
		t.Fatalf("expected no run id, got %q", id)
	}
	if runner.calls != 0 {
		t.Fatalf("expected 0 runner calls, got %d", runner.calls)
	}
	if run.StartedAt.IsZero() {
		t.Fatalf("expected StartedAt set")
	}
	if run.EndedAt.IsZero() {
		t.Fatalf("expected EndedAt set")
	}
	if run.EndedAt.Before(run.StartedAt) {
		t.Fatalf("expected EndedAt >= StartedAt")
	}
	if len(run.Jobs) != 0 {
		t.Fatalf("expected 0 jobs, got %d", len(run.Jobs))
	}
}

func TestRunMatrix_ContextCancelDuringRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &ctxCancelRunner{cancel: cancel}
	store := &fakeStore{}
	uc := newRunMatrix(testPipeline(), runner, store)

	run, _, err := uc.Execute(ctx, RunMatrixInput{
		PipelinePath: "pipelines/liberfa.yaml",
		Environment:  "dev",
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The first job completed before cancellation was detected.
	if len(run.Jobs) != 1 {
		t.Fatalf("expected 1 job (second never dispatched), got %d", len(run.Jobs))
	}
	if run.Jobs[0].Status != domain.StatusPassed {
		t.Fatalf("expected completed job to keep its status, got %s", run.Jobs[0].Status)
	}
	if store.saved {
		t.Fatal("expected no artifact save on cancellation")
	}
}
