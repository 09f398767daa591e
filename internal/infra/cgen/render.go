package cgen

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

//go:embed templates/bindings.go.tmpl
var templateFS embed.FS

// Renderer turns a parsed library into a cgo wrapper source file. Functions
// using C types outside the scalar map (structs, unions) are skipped; the
// remaining surface still renders.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	tmpl := template.New("bindings.go.tmpl").Funcs(templateFuncs())
	return &Renderer{
		tmpl: template.Must(tmpl.ParseFS(templateFS, "templates/bindings.go.tmpl")),
	}
}

// NewRendererFromFile replaces the embedded template with a user-provided
// one. The custom template sees the same model and helper funcs.
func NewRendererFromFile(path string) (*Renderer, error) {
	tmpl, err := template.New(filepath.Base(path)).Funcs(templateFuncs()).ParseFiles(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "cgen.template",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// templateFuncs are available to custom templates; the embedded one keeps
// its strings precomputed in the model instead.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
		"surround": func(items []string, prefix, suffix string) []string {
			out := make([]string, len(items))
			for i, s := range items {
				out[i] = prefix + s + suffix
			}
			return out
		},
	}
}

var _ ports.BindingRenderer = (*Renderer)(nil)

type fileModel struct {
	LibName     string
	Package     string
	Header      string
	NeedsUnsafe bool
	Funcs       []funcModel
}

type funcModel struct {
	GoName    string
	Doc       string
	Params    string
	ResultSig string
	Body      []string
}

func (r *Renderer) Render(lib domain.CLibrary, pkg string) ([]byte, error) {
	model := fileModel{
		LibName: lib.Name,
		Package: pkg,
		Header:  lib.Name + ".h",
	}

	skipped := 0
	for _, fn := range lib.Functions {
		fm, needsUnsafe, err := buildFunc(fn)
		if err != nil {
			skipped++
			continue
		}
		model.NeedsUnsafe = model.NeedsUnsafe || needsUnsafe
		model.Funcs = append(model.Funcs, fm)
	}
	if len(model.Funcs) == 0 {
		return nil, &domain.OpError{
			Op:   "cgen.render",
			Kind: domain.KindParse,
			Err:  fmt.Errorf("no bindable functions (%d skipped with unsupported types)", skipped),
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, model); err != nil {
		return nil, &domain.OpError{Op: "cgen.render", Kind: domain.KindExecution, Err: err}
	}
	return buf.Bytes(), nil
}

func buildFunc(fn domain.CFunction) (funcModel, bool, error) {
	fm := funcModel{GoName: exportedName(fn.Name)}

	fm.Doc = fmt.Sprintf("%s wraps %s.", fm.GoName, fn.Name)
	if fn.Brief != "" {
		fm.Doc = fmt.Sprintf("%s wraps %s: %s", fm.GoName, fn.Name, fn.Brief)
	}

	var params, results, args []string
	var retType string
	needsUnsafe := false
	for _, p := range fn.Params {
		t, err := goType(p)
		if err != nil {
			return funcModel{}, false, err
		}

		if p.Direction == domain.DirRet {
			retType = t
			results = append(results, p.Name+" "+t)
			continue
		}

		arg, err := callExpr(p)
		if err != nil {
			return funcModel{}, false, err
		}
		args = append(args, arg)
		needsUnsafe = needsUnsafe || usesUnsafe(p)

		if p.Direction == domain.DirOut {
			results = append(results, p.Name+" "+t)
		} else {
			params = append(params, p.Name+" "+t)
		}
	}

	fm.Params = strings.Join(params, ", ")

	call := fmt.Sprintf("C.%s(%s)", fn.Name, strings.Join(args, ", "))
	switch {
	case retType == "" && len(results) == 0:
		fm.Body = []string{call}
	case retType == "":
		fm.ResultSig = fmt.Sprintf(" (%s)", strings.Join(results, ", "))
		fm.Body = []string{call, "return"}
	case len(results) == 1:
		// The scalar return is the only output: keep the signature unnamed.
		fm.ResultSig = " " + retType
		fm.Body = []string{fmt.Sprintf("return %s(%s)", retType, call)}
	default:
		fm.ResultSig = fmt.Sprintf(" (%s)", strings.Join(results, ", "))
		fm.Body = []string{fmt.Sprintf("ret = %s(%s)", retType, call), "return"}
	}

	return fm, needsUnsafe, nil
}

// exportedName strips the library's lowercase namespace prefix, leaving the
// exported Go name (eraA2af -> A2af).
func exportedName(name string) string {
	for i, r := range name {
		if unicode.IsUpper(r) {
			return name[i:]
		}
	}
	rs := []rune(name)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
