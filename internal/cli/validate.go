package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bindkit/internal/usecase"
)

func validateCmd() *cobra.Command {
	var pipeline string
	var env string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline and environment without running anything",
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

			uc := usecase.NewValidatePipeline(ws.pipelines, ws.envs,
				usecase.WithCheckSetCatalog(ws.checkSets))
			if err := uc.Execute(cmd.Context(), pipelinePath, envArg); err != nil {
				return err
			}

			fmt.Println("OK")
			return nil
		},
	}

	c.Flags().StringVarP(&pipeline, "pipeline", "p", "", "Pipeline name or path (defaults to defaults.pipeline from bindkit.yaml)")
	c.Flags().StringVarP(&env, "env", "e", "", "Environment name or path (optional; defaults to workspace default env)")

	return c
}
