package ports

import "bindkit/internal/domain"

// PipelineLoader loads pipeline manifests from a source (e.g., filesystem).
type PipelineLoader interface {
	LoadPipeline(path string) (domain.Pipeline, error)
	ListPipelines(root string) ([]domain.PipelineRef, error)
}
