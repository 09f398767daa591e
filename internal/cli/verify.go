package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bindkit/internal/domain"
	"bindkit/internal/infra/elfinspect"
	"bindkit/internal/ports"
	"bindkit/internal/usecase"
)

func verifyCmd() *cobra.Command {
	var object string
	var require []string
	var sonamePrefix string
	var minVersion string
	var pipeline string
	var asJSON bool

	c := &cobra.Command{
		Use:   "verify",
		Short: "Inspect a built shared object's exported symbols and SONAME",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := usecase.VerifyObjectInput{
				ObjectPath:   object,
				Symbols:      require,
				SonamePrefix: sonamePrefix,
				MinVersion:   minVersion,
			}

			// Explicit --require flags make verify self-contained; without
			// them the contract comes from a pipeline manifest, which needs
			// a workspace.
			var pipelines ports.PipelineLoader
			if len(require) == 0 {
				ws, err := loadWorkspace(cmd)
				if err != nil {
					return err
				}
				defer ws.close()

				pipelinePath, err := resolvePipelinePath(ws, pipeline)
				if err != nil {
					return err
				}
				in.PipelinePath = pipelinePath
				pipelines = ws.pipelines
			}

			uc := usecase.NewVerifyObject(elfinspect.New(), pipelines)
			report, err := uc.Execute(in)
			if report.Path != "" {
				if perr := printReport(os.Stdout, report, asJSON); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	c.Flags().StringVar(&object, "object", "", "Path to the shared object to inspect (required)")
	c.Flags().StringArrayVar(&require, "require", nil, "Symbol the object must export (repeatable)")
	c.Flags().StringVar(&sonamePrefix, "soname-prefix", "", "Expected SONAME prefix (e.g. liberfa.so.1)")
	c.Flags().StringVar(&minVersion, "min-version", "", "Minimum SONAME version (e.g. 1.7.0)")
	c.Flags().StringVarP(&pipeline, "pipeline", "p", "", "Pipeline whose library contract to verify against")
	c.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	_ = c.MarkFlagRequired("object")
	return c
}

func printReport(w io.Writer, report domain.ObjectReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Object: "), report.Path)
	if report.SONAME != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("SONAME: "), report.SONAME)
	}
	if report.SonameVersion != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Version:"), report.SonameVersion)
	}
	fmt.Fprintln(w)

	for _, s := range report.Present {
		fmt.Fprintf(w, "  %s %s\n", passedStyle.Render("✓"), s)
	}
	for _, s := range report.Missing {
		fmt.Fprintf(w, "  %s %s (missing)\n", failedStyle.Render("✗"), s)
	}
	fmt.Fprintln(w)

	total := len(report.Present) + len(report.Missing)
	fmt.Fprintf(w, "%d of %d required symbols present\n", len(report.Present), total)
	return nil
}
