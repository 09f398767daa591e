package usecase

import (
	"errors"
	"fmt"
	"strings"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

// GenerateBindings parses a native library's sources and renders cgo binding
// code for it. Writing the output file is left to the caller.
type GenerateBindings struct {
	source   ports.BindingSource
	renderer ports.BindingRenderer
}

func NewGenerateBindings(source ports.BindingSource, renderer ports.BindingRenderer) *GenerateBindings {
	return &GenerateBindings{source: source, renderer: renderer}
}

type GenerateBindingsInput struct {
	SourcePath string
	Package    string
	// Sections restricts generation to functions documented under the named
	// header sections. Empty means every documented function.
	Sections []string
}

func (uc *GenerateBindings) Execute(in GenerateBindingsInput) (domain.CLibrary, []byte, error) {
	if in.Package == "" {
		return domain.CLibrary{}, nil, &domain.OpError{
			Op:   "gen",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("output package name is required"),
		}
	}

	lib, err := uc.source.LoadLibrary(in.SourcePath)
	if err != nil {
		return domain.CLibrary{}, nil, err
	}
	if len(in.Sections) > 0 {
		lib.Functions = filterSections(lib.Functions, in.Sections)
		if len(lib.Functions) == 0 {
			return lib, nil, &domain.OpError{
				Op:   "gen",
				Kind: domain.KindInvalidConfig,
				Path: in.SourcePath,
				Err:  fmt.Errorf("no functions in section %s", strings.Join(in.Sections, ", ")),
			}
		}
	}
	if len(lib.Functions) == 0 {
		return lib, nil, &domain.OpError{
			Op:   "gen",
			Kind: domain.KindParse,
			Path: in.SourcePath,
			Err:  errors.New("no bindable functions found"),
		}
	}

	code, err := uc.renderer.Render(lib, in.Package)
	if err != nil {
		return lib, nil, err
	}
	return lib, code, nil
}

// filterSections keeps functions whose section matches any requested name,
// either the full "Chapter/Subsection" path or one of its components.
func filterSections(fns []domain.CFunction, sections []string) []domain.CFunction {
	want := make(map[string]bool, len(sections))
	for _, s := range sections {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out []domain.CFunction
	for _, fn := range fns {
		if matchesSection(fn.Section, want) {
			out = append(out, fn)
		}
	}
	return out
}

func matchesSection(section string, want map[string]bool) bool {
	if want[strings.ToLower(section)] {
		return true
	}
	for _, part := range strings.Split(section, "/") {
		if want[strings.ToLower(part)] {
			return true
		}
	}
	return false
}
