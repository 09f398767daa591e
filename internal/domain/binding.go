package domain

// ArgDirection classifies a C function parameter by how the library uses it,
// derived from the "Given:" / "Returned:" / "Given and returned:" sections of
// the function's documentation block. DirRet marks the synthetic parameter a
// non-void scalar return becomes.
type ArgDirection string

const (
	DirIn    ArgDirection = "in"
	DirOut   ArgDirection = "out"
	DirInOut ArgDirection = "inout"
	DirRet   ArgDirection = "ret"
)

// CParam is one parameter of a C function prototype, qualifiers stripped.
type CParam struct {
	Name      string
	CType     string
	Pointer   bool
	Dims      []int
	Direction ArgDirection
	Doc       string
}

// IsArray reports whether the parameter is a fixed-size array.
func (p CParam) IsArray() bool {
	return len(p.Dims) > 0
}

// CFunction is a parsed C function: its prototype plus the argument
// classification recovered from the documentation block.
type CFunction struct {
	Name    string
	Section string
	Return  string
	Brief   string
	Params  []CParam
}

// HasReturn reports whether the function returns a scalar value.
func (f CFunction) HasReturn() bool {
	return f.Return != "" && f.Return != "void"
}

// ByDirection returns the parameters having any of the given directions,
// in declaration order.
func (f CFunction) ByDirection(dirs ...ArgDirection) []CParam {
	var out []CParam
	for _, p := range f.Params {
		for _, d := range dirs {
			if p.Direction == d {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// In returns the input parameters (in and inout).
func (f CFunction) In() []CParam { return f.ByDirection(DirIn, DirInOut) }

// Out returns the output parameters (out and inout), excluding the return.
func (f CFunction) Out() []CParam { return f.ByDirection(DirOut, DirInOut) }

// CLibrary is the parsed binding surface of a native library.
type CLibrary struct {
	Name      string
	Functions []CFunction
}
