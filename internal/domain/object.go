package domain

// ObjectReport is the result of inspecting a built shared object.
type ObjectReport struct {
	Path          string
	SONAME        string
	SonameVersion string
	Present       []string
	Missing       []string
}

// Complete reports whether every required symbol was found.
func (r ObjectReport) Complete() bool {
	return len(r.Missing) == 0
}
