package domain

import "time"

// LibrarySpec is the native library contract a pipeline builds and verifies
// against: the exported symbols a built object must carry and the minimum
// version an installed copy of the library must have.
type LibrarySpec struct {
	Name         string
	MinVersion   string
	Symbols      []string
	SonamePrefix string
}

// StepSpec is a single shell command inside a job.
type StepSpec struct {
	Name            string
	Run             string
	Env             Vars
	Timeout         time.Duration
	ContinueOnError bool
}

// SymbolsCheck verifies that a built shared object exports the required
// dynamic symbols. An empty Require list falls back to the pipeline's
// library symbols.
type SymbolsCheck struct {
	Object  string
	Require []string
}

// ReportRule is a single JSONPath assertion against a report document.
// The map key in ReportCheck.Rules is the JSONPath expression itself.
type ReportRule struct {
	Exists   bool
	Eq       *string
	Contains *string
	Matches  *string
	Gt       *float64
	Lt       *float64
}

// ReportCheck applies JSONPath rules to a JSON file produced by the job
// (typically a test-runner report).
type ReportCheck struct {
	File  string
	Rules map[string]ReportRule
}

// OutputCheck inspects the combined captured output of the job's steps.
type OutputCheck struct {
	Contains    []string
	NotContains []string
	Matches     []string
}

// ChecksSpec groups the post-step checks of a job. Use references named
// check sets contributed by workspace plugins; inline sections take
// precedence over plugin sections of the same kind.
type ChecksSpec struct {
	Use     []string
	Symbols *SymbolsCheck
	Report  *ReportCheck
	Output  *OutputCheck
}

// Empty reports whether the spec carries no checks at all.
func (c ChecksSpec) Empty() bool {
	return len(c.Use) == 0 && c.Symbols == nil && c.Report == nil && c.Output == nil
}

// VersionProbe runs a command whose output reveals the installed library
// version. Pattern's first capture group is the version; an empty pattern
// matches the first dotted number in the output.
type VersionProbe struct {
	Run     string
	Pattern string
}

// GateSpec decides when a job is skipped instead of failed: either a failing
// step's output matches one of the patterns (an "installed library too old"
// message), or a version probe detects a library older than the pipeline's
// minimum.
type GateSpec struct {
	SkipWhenOutputMatches []string
	MinVersionProbe       *VersionProbe
}

// JobSpec is one job of the pipeline, executed once per selected matrix point.
type JobSpec struct {
	Name    string
	Only    Selector
	Env     Vars
	Isolate bool
	Workdir string
	Timeout time.Duration
	Steps   []StepSpec
	Checks  ChecksSpec
	Gate    GateSpec
}

// Pipeline groups a job matrix under one logical unit (Git-friendly).
type Pipeline struct {
	Name    string
	Vars    Vars
	Library LibrarySpec
	Axes    Axes
	Include []Vars
	Exclude []Selector
	Jobs    []JobSpec
}

// PipelineRef is a lightweight reference to a pipeline file on disk.
type PipelineRef struct {
	Name string
	Path string
}

// WorkspaceSpec describes a workspace to scaffold.
type WorkspaceSpec struct {
	Root string
}
