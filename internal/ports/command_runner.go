package ports

import (
	"context"

	"bindkit/internal/domain"
)

// CommandRunner executes a single resolved shell command. A non-zero exit
// code is reported through the outcome; errors mean the command could not
// run or was interrupted.
type CommandRunner interface {
	Run(ctx context.Context, spec domain.CommandSpec) (domain.CommandOutcome, error)
}
