package ports

import "bindkit/internal/domain"

// ArtifactStore persists run artifacts for reproducibility.
type ArtifactStore interface {
	SaveRun(run domain.RunArtifact) (id string, err error)
}
