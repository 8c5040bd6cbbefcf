package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/engine"
)

func newValidateCommand() *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the project manifest and provider configs",
		Long: `Validate the project manifest against the plugin catalog.

This command checks:
  - Manifest syntax and structure
  - Provider config blocks against each plugin's schema
  - Dependency resolution (unknown providers, cycles)
  - Environment references`,
		Example: `  # Validate the current project
  verdant validate

  # Validate for a specific environment
  verdant validate --env stage`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(environment)
			if err != nil {
				return err
			}

			for i := range pc.Project.Providers {
				if err := pc.Registry.ValidateConfig(&pc.Project.Providers[i]); err != nil {
					return err
				}
			}

			eng := engine.New(pc.Registry, nil, engine.WithLogger(log.Logger))
			graph, filter, err := eng.Resolve(pc.Project, pc.Environment)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := map[string]interface{}{
					"project":     pc.Project.Name,
					"environment": pc.Environment,
					"order":       graph.Order,
					"disabled":    filter.Inactive,
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Printf("Project %s is valid for environment %s\n", pc.Project.Name, pc.Environment)
			fmt.Printf("Resolution order: %v\n", graph.Order)
			if inactive := filter.Inactive; len(inactive) > 0 {
				fmt.Printf("Inactive in this environment: %v\n", inactive)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to validate for")

	return cmd
}
