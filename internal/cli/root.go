package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bindkit/internal/buildinfo"
)

func Execute() {
	// Interrupts cancel the command context so in-flight jobs settle and the
	// partial artifact is still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bindkit",
		Short:        "Workspace CI harness for native library binding projects",
		SilenceUsage: true,
		Version:      buildinfo.Version,
	}

	cmd.PersistentFlags().Bool("debug", false, "enable verbose logging to .bindkit/logs/bindkit.log")
	cmd.PersistentFlags().StringP("workspace", "w", "", "workspace root (optional; autodetected if omitted)")

	cmd.AddCommand(
		initCmd(),
		runCmd(),
		validateCmd(),
		pipelinesCmd(),
		envsCmd(),
		verifyCmd(),
		genCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(buildinfo.String())
		},
	}
}
