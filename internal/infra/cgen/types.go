package cgen

import (
	"fmt"
	"strings"

	"bindkit/internal/domain"
)

// Fixed-width Go equivalents of the C scalar types the wrappers marshal.
// int32 matches C int on every platform cgo supports.
var goScalar = map[string]string{
	"int":    "int32",
	"double": "float64",
	"float":  "float32",
	"char":   "byte",
}

var cgoScalar = map[string]string{
	"int":    "C.int",
	"double": "C.double",
	"float":  "C.float",
	"char":   "C.char",
}

// goType renders the Go-side type for a parameter. Inputs and outputs are
// plain values (outputs become named results); in-out parameters are Go
// pointers so the caller observes the update.
func goType(p domain.CParam) (string, error) {
	base, ok := goScalar[p.CType]
	if !ok {
		return "", fmt.Errorf("unsupported C type %q", p.CType)
	}
	var b strings.Builder
	if p.Direction == domain.DirInOut {
		b.WriteString("*")
	}
	for _, d := range p.Dims {
		fmt.Fprintf(&b, "[%d]", d)
	}
	b.WriteString(base)
	return b.String(), nil
}

// callExpr renders the argument expression for the cgo call.
func callExpr(p domain.CParam) (string, error) {
	ctype, ok := cgoScalar[p.CType]
	if !ok {
		return "", fmt.Errorf("unsupported C type %q", p.CType)
	}

	switch {
	case p.Direction == domain.DirInOut && len(p.Dims) == 0:
		return fmt.Sprintf("(*%s)(unsafe.Pointer(%s))", ctype, p.Name), nil
	case len(p.Dims) > 0:
		// Indexing through a pointer-to-array dereferences it, so the
		// same expression covers value and in-out arrays.
		elem := p.Name + strings.Repeat("[0]", len(p.Dims))
		return fmt.Sprintf("(*%s)(unsafe.Pointer(&%s))", ctype, elem), nil
	case p.Pointer || p.Direction == domain.DirOut:
		return fmt.Sprintf("(*%s)(unsafe.Pointer(&%s))", ctype, p.Name), nil
	default:
		return fmt.Sprintf("%s(%s)", ctype, p.Name), nil
	}
}

// usesUnsafe reports whether marshalling p needs an unsafe.Pointer cast.
func usesUnsafe(p domain.CParam) bool {
	if p.Direction == domain.DirRet {
		return false
	}
	return p.Pointer || len(p.Dims) > 0 || p.Direction != domain.DirIn
}
