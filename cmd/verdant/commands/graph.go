package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/engine"
)

func newGraphCommand() *cobra.Command {
	var (
		environment string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the provider dependency graph as DOT",
		Example: `  # Print the graph to stdout
  verdant graph

  # Write it to a file and render with graphviz
  verdant graph -o providers.dot && dot -Tsvg providers.dot -o providers.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(environment)
			if err != nil {
				return err
			}

			eng := engine.New(pc.Registry, nil, engine.WithLogger(log.Logger))
			graph, _, err := eng.Resolve(pc.Project, pc.Environment)
			if err != nil {
				return err
			}

			dot := graph.ToDOT()
			if output == "" {
				fmt.Print(dot)
				return nil
			}

			if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			log.Info().Str("path", output).Msg("Graph written")
			return nil
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to resolve the graph for")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write DOT output to a file")

	return cmd
}
