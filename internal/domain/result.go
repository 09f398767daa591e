package domain

import (
	"context"
	"errors"
	"time"
)

// JobStatus is the terminal state of a job.
type JobStatus string

const (
	StatusPassed  JobStatus = "passed"
	StatusFailed  JobStatus = "failed"
	StatusSkipped JobStatus = "skipped"
)

// RunErrorKind is a high-level classification of runtime errors.
type RunErrorKind string

const (
	RunErrorUnknown  RunErrorKind = "unknown"
	RunErrorStart    RunErrorKind = "start"
	RunErrorTimeout  RunErrorKind = "timeout"
	RunErrorCanceled RunErrorKind = "canceled"
)

// RunError represents a structured error produced during job execution.
// Non-zero exit codes are not RunErrors; they are recorded on the step.
type RunError struct {
	Kind    RunErrorKind
	Message string
}

// NewRunError classifies an execution error for artifact storage.
func NewRunError(err error) *RunError {
	if err == nil {
		return nil
	}
	kind := RunErrorUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = RunErrorTimeout
	case errors.Is(err, context.Canceled):
		kind = RunErrorCanceled
	case IsKind(err, KindExecution):
		kind = RunErrorStart
	}
	return &RunError{Kind: kind, Message: err.Error()}
}

// OutputSnapshot stores a bounded view of a step's captured output.
type OutputSnapshot struct {
	Stdout    string
	Stderr    string
	Truncated bool
}

// Combined joins stdout and stderr for pattern matching and display.
func (o OutputSnapshot) Combined() string {
	if o.Stdout == "" {
		return o.Stderr
	}
	if o.Stderr == "" {
		return o.Stdout
	}
	return o.Stdout + "\n" + o.Stderr
}

// StepResult records one executed step. Steps that never ran because an
// earlier step failed do not appear in the job's results.
type StepResult struct {
	Name       string
	Command    string
	ExitCode   int
	DurationMS int64
	Output     OutputSnapshot
	Error      *RunError
}

// Failed reports whether the step hit an execution error or a non-zero exit.
func (r StepResult) Failed() bool {
	return r.Error != nil || r.ExitCode != 0
}

// CheckResult is the output of a single post-step check.
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
}

// JobResult represents the outcome of one (matrix point, job) pair.
type JobResult struct {
	JobName     string
	PointKey    string
	Point       Vars
	Status      JobStatus
	SkipReason  string
	Fingerprint string
	Env         Vars
	Steps       []StepResult
	Checks      []CheckResult
	StartedAt   time.Time
	EndedAt     time.Time
	Error       *RunError
}

// Failed reports whether the job counts against the run's exit status.
// Skipped jobs never do.
func (r JobResult) Failed() bool {
	return r.Status == StatusFailed
}

// RunArtifact represents a persisted matrix run for reproducibility.
type RunArtifact struct {
	ID string

	PipelineName    string
	PipelinePath    string
	EnvironmentName string

	StartedAt time.Time
	EndedAt   time.Time

	Jobs []JobResult
}

// CountByStatus tallies the run's jobs.
func (r RunArtifact) CountByStatus() (passed, failed, skipped int) {
	for _, j := range r.Jobs {
		switch j.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// RunEventType marks progress events emitted while a run executes.
type RunEventType string

const (
	EventJobStarted  RunEventType = "job_started"
	EventJobFinished RunEventType = "job_finished"
)

// RunEvent is a progress notification for interactive consumers.
type RunEvent struct {
	Type       RunEventType
	JobName    string
	PointKey   string
	Index      int
	Total      int
	Status     JobStatus
	SkipReason string
	DurationMS int64
}
