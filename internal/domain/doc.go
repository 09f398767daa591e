// Package domain contains the core domain model for bindkit.
//
// The domain is transport- and persistence-agnostic: it does not depend on YAML parsing,
// os/exec, or the filesystem. Infra/adapters map into/from these types.
package domain
