package tui

import "bindkit/internal/domain"

type runnerEventMsg domain.RunEvent

type runnerDoneMsg struct {
	run domain.RunArtifact
	id  string
	err error
}
