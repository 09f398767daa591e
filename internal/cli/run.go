package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bindkit/internal/domain"
	"bindkit/internal/ui/tui"
	"bindkit/internal/usecase"
)

func runCmd() *cobra.Command {
	var pipeline string
	var env string
	var selects []string
	var jobs []string
	var parallel int
	var noSave bool
	var format string
	var watch bool

	c := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline's job matrix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.close()

			pipelinePath, err := resolvePipelinePath(ws, pipeline)
			if err != nil {
				return err
			}

			envArg, err := resolveEnvironmentArg(ws, env)
			if err != nil {
				return err
			}

			only, err := parseSelector(selects)
			if err != nil {
				return err
			}

			store := ws.store
			if noSave {
				store = nil
			}

			uc := usecase.NewRunMatrix(ws.pipelines, ws.envs, ws.runner, ws.inspector, store,
				usecase.WithCheckSets(ws.checkSets))

			in := usecase.RunMatrixInput{
				PipelinePath: pipelinePath,
				Environment:  envArg,
				Root:         ws.root,
				Only:         only,
				Jobs:         jobs,
				Workers:      parallel,
			}

			var run domain.RunArtifact
			var runID string
			if watch && isatty.IsTerminal(os.Stdout.Fd()) {
				debug, _ := cmd.Flags().GetBool("debug")
				run, runID, err = tui.Watch(cmd.Context(), tui.WatchInput{
					PipelineName: pipelineDisplayName(pipelinePath),
					Environment:  envArg,
					Runner:       uc,
					Input:        in,
					Logger:       ws.log,
					Debug:        debug,
				})
			} else {
				run, runID, err = uc.Execute(cmd.Context(), in)
			}
			if err != nil {
				// A partial artifact still tells which job broke; zero-value
				// runs (load errors) have nothing worth printing.
				if !run.StartedAt.IsZero() {
					_ = printRun(os.Stdout, run, runID, format)
				}
				return err
			}

			if err := printRun(os.Stdout, run, runID, format); err != nil {
				return err
			}

			if ws.cfg.Metrics.Enabled {
				if perr := ws.metrics.Publish(run); perr != nil {
					ws.log.Warn("metrics publish failed", zap.Error(perr))
				}
			}

			if _, failed, _ := run.CountByStatus(); failed > 0 {
				return fmt.Errorf("run failed (%d failed job(s))", failed)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&pipeline, "pipeline", "p", "", "Pipeline name or path (defaults to defaults.pipeline from bindkit.yaml)")
	c.Flags().StringVarP(&env, "env", "e", "", "Environment name or path (optional; defaults to workspace default env)")
	c.Flags().StringArrayVar(&selects, "select", nil, "Keep only matrix points matching axis=value (repeatable)")
	c.Flags().StringArrayVar(&jobs, "job", nil, "Keep only the named jobs (repeatable)")
	c.Flags().IntVar(&parallel, "parallel", 1, "Number of jobs to run concurrently")
	c.Flags().BoolVar(&noSave, "no-save", false, "Do not save run artifact under runs/")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	c.Flags().BoolVar(&watch, "watch", false, "Show live progress (falls back to plain output without a TTY)")

	return c
}

// parseSelector turns repeated "axis=value" flags into a selector. Repeating
// an axis accumulates values, so --select python=3.12 --select python=3.13
// keeps both columns.
func parseSelector(pairs []string) (domain.Selector, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	sel := domain.Selector{}
	for _, raw := range pairs {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid --select %q (expected axis=value)", raw)
		}
		sel[key] = append(sel[key], value)
	}
	return sel, nil
}

func pipelineDisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printRun(w io.Writer, run domain.RunArtifact, runID string, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		// Include runID (optional) as a wrapper to avoid changing domain model.
		payload := map[string]any{
			"run_id": runID,
			"run":    run,
		}
		return enc.Encode(payload)
	case "pretty", "":
		printPrettyRun(w, run, runID)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

var (
	dimStyle     = lipgloss.NewStyle().Faint(true)
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func statusMark(status domain.JobStatus) string {
	switch status {
	case domain.StatusPassed:
		return passedStyle.Render("PASS")
	case domain.StatusFailed:
		return failedStyle.Render("FAIL")
	case domain.StatusSkipped:
		return skippedStyle.Render("SKIP")
	default:
		return string(status)
	}
}

func printPrettyRun(w io.Writer, run domain.RunArtifact, runID string) {
	total := run.EndedAt.Sub(run.StartedAt)
	if run.StartedAt.IsZero() || run.EndedAt.IsZero() {
		total = 0
	}

	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Pipeline:"), run.PipelineName)
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Env:     "), run.EnvironmentName)
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Started: "), run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Duration:"), total.Round(time.Millisecond))
	if runID != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Run ID:  "), runID)
	}
	fmt.Fprintln(w)

	for _, j := range run.Jobs {
		d := j.EndedAt.Sub(j.StartedAt)
		if j.StartedAt.IsZero() || j.EndedAt.IsZero() {
			d = 0
		}

		fmt.Fprintf(w, "- [%s] %s  %s  (%s)\n", statusMark(j.Status), j.JobName, j.PointKey, d.Round(time.Millisecond))

		if j.SkipReason != "" {
			fmt.Fprintf(w, "  skipped: %s\n", j.SkipReason)
		}
		if j.Error != nil {
			fmt.Fprintf(w, "  error: %s (%s)\n", j.Error.Message, j.Error.Kind)
		}

		for _, s := range j.Steps {
			if !s.Failed() {
				continue
			}
			if s.Error != nil {
				fmt.Fprintf(w, "  step %s: %s (%s)\n", s.Name, s.Error.Message, s.Error.Kind)
			} else {
				fmt.Fprintf(w, "  step %s: exit %d\n", s.Name, s.ExitCode)
			}
			if tail := lastLine(s.Output.Stderr); tail != "" {
				fmt.Fprintf(w, "    %s\n", tail)
			}
		}

		if len(j.Checks) > 0 {
			pass, fail := countCheckPassFail(j.Checks)
			fmt.Fprintf(w, "  checks: %d pass / %d fail\n", pass, fail)
			for _, c := range j.Checks {
				mark := "✓"
				if !c.Passed {
					mark = "✗"
				}
				fmt.Fprintf(w, "    %s %s: %s\n", mark, c.Name, c.Message)
			}
		}

		fmt.Fprintln(w)
	}

	passed, failed, skipped := run.CountByStatus()
	fmt.Fprintf(w, "%d passed / %d failed / %d skipped\n", passed, failed, skipped)
}

func countCheckPassFail(in []domain.CheckResult) (pass int, fail int) {
	for _, c := range in {
		if c.Passed {
			pass++
		} else {
			fail++
		}
	}
	return pass, fail
}

// lastLine trims captured output to its final non-empty line for inline display.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return t
		}
	}
	return ""
}
