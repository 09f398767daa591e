package ports

import "bindkit/internal/domain"

// ObjectInspector reads a built shared object and reports which of the
// required dynamic symbols it exports, plus its SONAME when present.
type ObjectInspector interface {
	Inspect(path string, require []string) (domain.ObjectReport, error)
}
