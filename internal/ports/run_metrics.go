package ports

import "bindkit/internal/domain"

// RunMetrics publishes aggregate run metrics (e.g., a node-exporter textfile).
type RunMetrics interface {
	Publish(run domain.RunArtifact) error
}
