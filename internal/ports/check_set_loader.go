package ports

import "bindkit/internal/domain"

// CheckSetLoader loads named check sets contributed by workspace plugins.
type CheckSetLoader interface {
	LoadCheckSets() (map[string]domain.ChecksSpec, error)
}
