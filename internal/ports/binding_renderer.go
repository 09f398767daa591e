package ports

import "bindkit/internal/domain"

// BindingRenderer renders a parsed library into binding source code.
type BindingRenderer interface {
	Render(lib domain.CLibrary, pkg string) ([]byte, error)
}
