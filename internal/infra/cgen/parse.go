// Package cgen parses a C library's sources into their binding surface and
// renders cgo wrappers for it. Parameter directions are recovered from the
// "Given:" / "Returned:" sections of each function's documentation block,
// the convention ERFA-style libraries document their prototypes with.
package cgen

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type Source struct{}

func NewSource() *Source {
	return &Source{}
}

var _ ports.BindingSource = (*Source)(nil)

var (
	sectionRe  = regexp.MustCompile(`(?s)/\* (\w+)/(\w+) \*/\n(.*?)\n\n`)
	declNameRe = regexp.MustCompile(`(?s) (\w+)\(.*?\);`)
	argLineRe  = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(.*)$`)
	dimsRe     = regexp.MustCompile(`\[(\d+)\]`)
)

// LoadLibrary parses the library rooted at path. A directory holds the header
// plus one .c file per function; a single .c file holds everything, with the
// header expected alongside it.
func (s *Source) LoadLibrary(path string) (domain.CLibrary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.CLibrary{}, &domain.OpError{
			Op:   "cgen.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	srcDir := path
	singleFile := ""
	if !info.IsDir() {
		singleFile = path
		srcDir = filepath.Dir(path)
	}

	headerPath, err := findHeader(srcDir)
	if err != nil {
		return domain.CLibrary{}, err
	}
	header, err := os.ReadFile(headerPath)
	if err != nil {
		return domain.CLibrary{}, &domain.OpError{
			Op:   "cgen.load",
			Kind: domain.KindNotFound,
			Path: headerPath,
			Err:  err,
		}
	}

	lib := domain.CLibrary{
		Name: strings.TrimSuffix(filepath.Base(headerPath), ".h"),
	}

	var singleSrc string
	if singleFile != "" {
		b, err := os.ReadFile(singleFile)
		if err != nil {
			return domain.CLibrary{}, &domain.OpError{
				Op:   "cgen.load",
				Kind: domain.KindNotFound,
				Path: singleFile,
				Err:  err,
			}
		}
		singleSrc = string(b)
	}

	for _, sec := range sectionRe.FindAllStringSubmatch(string(header), -1) {
		section, body := sec[1]+"/"+sec[2], sec[3]
		for _, m := range declNameRe.FindAllStringSubmatch(body, -1) {
			name := m[1]

			var fn domain.CFunction
			var parseErr error
			if singleFile != "" {
				matchLine := declPrefix(body, name)
				fn, parseErr = parseFunction(singleSrc, singleFile, name, matchLine)
			} else {
				srcPath := filepath.Join(srcDir, sourceFileName(name))
				b, err := os.ReadFile(srcPath)
				if err != nil {
					return domain.CLibrary{}, &domain.OpError{
						Op:   "cgen.load",
						Kind: domain.KindParse,
						Path: srcPath,
						Err:  fmt.Errorf("source for %s: %w", name, err),
					}
				}
				fn, parseErr = parseFunction(string(b), srcPath, name, "")
			}
			if parseErr != nil {
				return domain.CLibrary{}, parseErr
			}
			fn.Section = section
			lib.Functions = append(lib.Functions, fn)
		}
	}

	return lib, nil
}

// findHeader expects exactly one .h file next to the sources.
func findHeader(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &domain.OpError{
			Op:   "cgen.load",
			Kind: domain.KindNotFound,
			Path: dir,
			Err:  err,
		}
	}
	var headers []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".h" {
			headers = append(headers, e.Name())
		}
	}
	sort.Strings(headers)
	switch len(headers) {
	case 0:
		return "", &domain.OpError{
			Op:   "cgen.load",
			Kind: domain.KindNotFound,
			Path: dir,
			Err:  fmt.Errorf("no header file found"),
		}
	case 1:
		return filepath.Join(dir, headers[0]), nil
	default:
		return "", &domain.OpError{
			Op:   "cgen.load",
			Kind: domain.KindParse,
			Path: dir,
			Err:  fmt.Errorf("ambiguous headers: %s", strings.Join(headers, ", ")),
		}
	}
}

// sourceFileName maps a function name to its stand-alone source file:
// the lowercase prefix is the library's namespace (eraA2af -> a2af.c).
func sourceFileName(name string) string {
	for i, r := range name {
		if unicode.IsUpper(r) {
			return strings.ToLower(name[i:]) + ".c"
		}
	}
	return strings.ToLower(name) + ".c"
}

// declPrefix recovers the start of the header declaration line for name, used
// to locate the definition (rather than a call) in a concatenated source.
func declPrefix(sectionBody, name string) string {
	for _, line := range strings.Split(sectionBody, "\n") {
		if strings.Contains(line, name) {
			if idx := strings.Index(line, "("); idx >= 0 {
				return line[:idx]
			}
			return line
		}
	}
	return ""
}

func parseFunction(src, path, name, matchLine string) (domain.CFunction, error) {
	// In a concatenated source the name alone would also match call sites,
	// so the definition is anchored to the header's declaration prefix.
	var protoRe *regexp.Regexp
	if matchLine != "" {
		protoRe = regexp.MustCompile(`(?s)\n(` + regexp.QuoteMeta(matchLine) + ` ?\(([^)]*)\)).*?(/\*.*?\*/)`)
	} else {
		protoRe = regexp.MustCompile(`(?s)\n([^\n]+\b` + regexp.QuoteMeta(name) + ` ?\(([^)]*)\)).*?(/\*.*?\*/)`)
	}

	m := protoRe.FindStringSubmatch("\n" + src)
	if m == nil {
		return domain.CFunction{}, parseError(path, fmt.Errorf("definition of %s not found", name))
	}
	proto, rawArgs, docBlock := m[1], m[2], m[3]

	doc := newFunctionDoc(docBlock)

	fn := domain.CFunction{
		Name:  name,
		Brief: doc.brief,
	}

	firstLine := proto
	if i := strings.Index(proto, "\n"); i >= 0 {
		firstLine = proto[:i]
	}
	if i := strings.Index(firstLine, name); i >= 0 {
		fn.Return = strings.TrimSpace(firstLine[:i])
	}

	for _, def := range strings.Split(rawArgs, ",") {
		def = strings.TrimSpace(strings.ReplaceAll(def, "\n", " "))
		if def == "" || def == "void" {
			continue
		}
		p, err := parseParam(def)
		if err != nil {
			return domain.CFunction{}, parseError(path, fmt.Errorf("%s: %w", name, err))
		}
		p.Direction = doc.directionOf(p.Name)
		p.Doc = doc.docOf(p.Name)
		fn.Params = append(fn.Params, p)
	}

	if fn.HasReturn() {
		fn.Params = append(fn.Params, domain.CParam{
			Name:      "ret",
			CType:     fn.Return,
			Direction: domain.DirRet,
		})
	}

	return fn, nil
}

// parseParam splits a prototype parameter into base type, name, pointer flag
// and array dimensions, dropping const qualifiers.
func parseParam(def string) (domain.CParam, error) {
	var p domain.CParam

	if i := strings.Index(def, "*"); i >= 0 {
		p.Pointer = true
		p.CType = strings.TrimSpace(def[:i])
		p.Name = strings.TrimSpace(strings.TrimLeft(def[i:], "* "))
	} else {
		i := strings.LastIndex(def, " ")
		if i < 0 {
			return p, fmt.Errorf("malformed parameter %q", def)
		}
		p.CType = strings.TrimSpace(def[:i])
		p.Name = strings.TrimSpace(def[i+1:])
		if j := strings.Index(p.Name, "["); j >= 0 {
			dims := p.Name[j:]
			p.Name = p.Name[:j]
			for _, d := range dimsRe.FindAllStringSubmatch(dims, -1) {
				n, err := strconv.Atoi(d[1])
				if err != nil {
					return p, fmt.Errorf("malformed dimensions in %q", def)
				}
				p.Dims = append(p.Dims, n)
			}
		}
	}

	p.CType = strings.TrimSpace(strings.TrimPrefix(p.CType, "const "))
	if p.CType == "" || p.Name == "" {
		return p, fmt.Errorf("malformed parameter %q", def)
	}
	return p, nil
}

func parseError(path string, err error) error {
	return &domain.OpError{
		Op:   "cgen.parse",
		Kind: domain.KindParse,
		Path: path,
		Err:  err,
	}
}

// functionDoc indexes one documentation block: which names the Given and
// Returned sections mention, and the per-argument doc text.
type functionDoc struct {
	brief string
	in    map[string]bool
	out   map[string]bool
	docs  map[string]string
}

func newFunctionDoc(block string) functionDoc {
	cleaned := strings.NewReplacer("**", "  ", "/*", "  ", "*/", "  ").Replace(block)
	lines := strings.Split(cleaned, "\n")

	d := functionDoc{
		in:   map[string]bool{},
		out:  map[string]bool{},
		docs: map[string]string{},
	}
	d.brief = briefOf(lines)

	const (
		modeNone = iota
		modeIn
		modeOut
		modeInOut
	)
	mode := modeNone
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			mode = modeNone
			continue
		}
		if strings.HasSuffix(t, ":") {
			switch {
			case strings.HasPrefix(t, "Given and returned"):
				mode = modeInOut
			case strings.HasPrefix(t, "Given"):
				mode = modeIn
			case strings.HasPrefix(t, "Returned"):
				mode = modeOut
			default:
				mode = modeNone
			}
			continue
		}
		if mode == modeNone {
			continue
		}

		m := argLineRe.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if mode == modeIn || mode == modeInOut {
				d.in[name] = true
			}
			if mode == modeOut || mode == modeInOut {
				d.out[name] = true
			}
			if _, seen := d.docs[name]; !seen {
				d.docs[name] = strings.TrimSpace(m[3])
			}
		}
	}
	return d
}

// directionOf defaults to input when the doc block never mentions the name;
// an undocumented parameter should not silently drop out of the binding.
func (d functionDoc) directionOf(name string) domain.ArgDirection {
	switch {
	case d.in[name] && d.out[name]:
		return domain.DirInOut
	case d.out[name]:
		return domain.DirOut
	default:
		return domain.DirIn
	}
}

func (d functionDoc) docOf(name string) string {
	return d.docs[name]
}

// briefOf returns the first doc line after the name banner. Banner lines are
// made of single-character tokens ("- - - -", "e r a A 2 a f").
func briefOf(lines []string) string {
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || isBanner(t) {
			continue
		}
		return t
	}
	return ""
}

func isBanner(s string) bool {
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) > 1 {
			return false
		}
	}
	return true
}
