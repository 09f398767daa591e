package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func pipelinesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "pipelines",
		Short: "Manage pipelines in a workspace",
	}

	c.AddCommand(pipelinesListCmd())
	return c
}

func pipelinesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pipelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			defer ws.close()

			refs, err := ws.pipelines.ListPipelines(ws.root)
			if err != nil {
				return err
			}

			if len(refs) == 0 {
				fmt.Println("(no pipelines found)")
				return nil
			}

			fmt.Printf("Workspace: %s\n\n", ws.root)
			for _, r := range refs {
				rel, _ := filepath.Rel(ws.root, r.Path)
				fmt.Printf("- %s  (%s)\n", r.Name, rel)
			}
			return nil
		},
	}

	return cmd
}
