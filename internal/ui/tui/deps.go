package tui

import (
	"go.uber.org/zap"

	"bindkit/internal/usecase"
)

// WatchInput carries everything the live run screen needs. The usecase is
// constructed by the caller; the screen only drives it and renders progress.
type WatchInput struct {
	PipelineName string
	Environment  string

	Runner *usecase.RunMatrix
	Input  usecase.RunMatrixInput

	Logger *zap.Logger
	Debug  bool
}
