package ports

import "bindkit/internal/domain"

// BindingSource parses a native library's sources into its binding surface.
// Path may be a source directory (header plus per-function sources) or a
// single concatenated file.
type BindingSource interface {
	LoadLibrary(path string) (domain.CLibrary, error)
}
