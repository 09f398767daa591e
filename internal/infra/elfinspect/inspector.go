// Package elfinspect inspects built shared objects through the ELF dynamic
// symbol table, without loading the library into the process.
package elfinspect

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"strings"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type Inspector struct{}

func New() *Inspector {
	return &Inspector{}
}

var _ ports.ObjectInspector = (*Inspector)(nil)

// Inspect opens the object at path and classifies each required symbol as
// present or missing in its dynamic symbol table. Symbols are matched by
// name; versioned symbols (name@VERSION) match on the bare name.
func (i *Inspector) Inspect(path string, require []string) (domain.ObjectReport, error) {
	report := domain.ObjectReport{Path: path}

	f, err := elf.Open(path)
	if err != nil {
		kind := domain.KindExecution
		if errors.Is(err, os.ErrNotExist) {
			kind = domain.KindNotFound
		}
		return report, &domain.OpError{
			Op:   "elf.open",
			Kind: kind,
			Path: path,
			Err:  err,
		}
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		return report, &domain.OpError{
			Op:   "elf.symbols",
			Kind: domain.KindExecution,
			Path: path,
			Err:  fmt.Errorf("reading dynamic symbols: %w", err),
		}
	}

	exported := make(map[string]bool, len(syms))
	for _, sym := range syms {
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		exported[sym.Name] = true
	}

	for _, name := range require {
		if exported[name] {
			report.Present = append(report.Present, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
	}

	if sonames, err := f.DynString(elf.DT_SONAME); err == nil && len(sonames) > 0 {
		report.SONAME = sonames[0]
		report.SonameVersion = sonameVersion(sonames[0])
	}

	return report, nil
}

// sonameVersion extracts the version suffix from an SONAME such as
// "liberfa.so.1" or "liberfa.so.1.7.3". It returns "" when the SONAME
// carries no version.
func sonameVersion(soname string) string {
	const marker = ".so."
	idx := strings.LastIndex(soname, marker)
	if idx < 0 {
		return ""
	}
	version := soname[idx+len(marker):]
	if version == "" {
		return ""
	}
	for _, part := range strings.Split(version, ".") {
		if part == "" {
			return ""
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return ""
			}
		}
	}
	return version
}
