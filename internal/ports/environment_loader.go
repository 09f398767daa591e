package ports

import "bindkit/internal/domain"

// EnvironmentLoader loads environment variables from a source (e.g., filesystem).
type EnvironmentLoader interface {
	LoadEnvironment(nameOrPath string) (domain.Environment, error)
}
