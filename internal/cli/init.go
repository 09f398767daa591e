package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bindkit/internal/infra/fsworkspace"
	"bindkit/internal/usecase"
)

func initCmd() *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a bindkit workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer())
			if err := uc.Execute(root, force); err != nil {
				return err
			}

			fmt.Printf("Initialized bindkit workspace in %s\n", root)
			fmt.Println("Try: bindkit run -p liberfa")
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "Overwrite scaffold files that already exist")
	return c
}
