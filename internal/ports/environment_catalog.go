package ports

import "bindkit/internal/domain"

type EnvironmentCatalog interface {
	ListEnvironments(root string) ([]domain.EnvironmentRef, error)
}
