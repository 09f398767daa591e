package domain

import "time"

// CommandSpec is a fully resolved shell command ready for execution.
// Env entries are "KEY=VALUE" pairs appended after the base environment,
// so declared variables win either way.
type CommandSpec struct {
	Command    string
	Dir        string
	Env        []string
	InheritEnv bool
	Timeout    time.Duration
}

// CommandOutcome is what running a command produced. A non-zero exit code
// is a normal outcome, not an error; errors are reserved for commands that
// could not run or were cut short.
type CommandOutcome struct {
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	Truncated  bool
	DurationMS int64
}

// CombinedOutput joins stdout and stderr for gate and output checks.
func (o CommandOutcome) CombinedOutput() []byte {
	if len(o.Stdout) == 0 {
		return o.Stderr
	}
	if len(o.Stderr) == 0 {
		return o.Stdout
	}
	out := make([]byte, 0, len(o.Stdout)+1+len(o.Stderr))
	out = append(out, o.Stdout...)
	out = append(out, '\n')
	out = append(out, o.Stderr...)
	return out
}
