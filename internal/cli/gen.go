package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"github.com/spf13/cobra"

	"bindkit/internal/infra/cgen"
	"bindkit/internal/usecase"
)

func genCmd() *cobra.Command {
	var src string
	var out string
	var pkg string
	var tmplPath string
	var sections []string

	c := &cobra.Command{
		Use:   "gen",
		Short: "Generate cgo bindings from a C library's sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			renderer := cgen.NewRenderer()
			if tmplPath != "" {
				var err error
				renderer, err = cgen.NewRendererFromFile(tmplPath)
				if err != nil {
					return err
				}
			}

			pkgName, err := packageForOutput(out, pkg)
			if err != nil {
				return err
			}

			uc := usecase.NewGenerateBindings(cgen.NewSource(), renderer)
			lib, code, err := uc.Execute(usecase.GenerateBindingsInput{
				SourcePath: src,
				Package:    pkgName,
				Sections:   sections,
			})
			if err != nil {
				return err
			}

			if err := writeFileAtomic(out, code, 0o644); err != nil {
				return err
			}

			fmt.Printf("wrote %s (%d functions parsed from %s)\n", out, len(lib.Functions), lib.Name)
			return nil
		},
	}

	c.Flags().StringVar(&src, "src", "", "C library sources: a directory with a header, or one concatenated file (required)")
	c.Flags().StringVar(&out, "out", "", "Output .go file (required)")
	c.Flags().StringVar(&pkg, "package", "", "Package name for the generated file (default: output directory name)")
	c.Flags().StringVar(&tmplPath, "template", "", "Custom template file (replaces the built-in one)")
	c.Flags().StringArrayVar(&sections, "section", nil, "Generate only functions from this header section (repeatable)")

	_ = c.MarkFlagRequired("src")
	_ = c.MarkFlagRequired("out")
	return c
}

// packageForOutput picks the generated file's package name: an explicit flag
// wins, otherwise the output directory's base name is used when it is a
// valid identifier.
func packageForOutput(outPath, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	base := filepath.Base(filepath.Dir(outPath))
	if !validPackageName(base) {
		return "", fmt.Errorf("cannot derive a package name from %q; pass --package", outPath)
	}
	return base, nil
}

func validPackageName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r):
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	// Atomic-ish write: tmp then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(tmp), err)
	}
	return nil
}
