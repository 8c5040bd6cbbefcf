package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/config"
	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/stores"
)

func newProvidersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the project's providers",
	}

	cmd.AddCommand(newProvidersListCommand())
	cmd.AddCommand(newProvidersStatusCommand())

	return cmd
}

func newProvidersListCommand() *cobra.Command {
	var (
		environment string
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers and their resolution order",
		Example: `  # List providers active in the default environment
  verdant providers list

  # Include the full plugin catalog
  verdant providers list --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(environment)
			if err != nil {
				return err
			}

			if all {
				return printCatalog(pc)
			}

			eng := engine.New(pc.Registry, nil, engine.WithLogger(log.Logger))
			graph, filter, err := eng.Resolve(pc.Project, pc.Environment)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := map[string]interface{}{
					"project":      pc.Project.Name,
					"environment":  pc.Environment,
					"order":        graph.Order,
					"levels":       graph.Levels,
					"dependencies": graph.Dependencies,
					"disabled":     filter.Inactive,
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tDEPENDENCIES\tSTATE")
			for _, name := range graph.Order {
				deps := graph.Dependencies[name]
				fmt.Fprintf(w, "%s\t%v\t%s\n", name, deps, engine.ProviderStatePending)
			}
			for _, name := range filter.Inactive {
				fmt.Fprintf(w, "%s\t\t%s\n", name, engine.ProviderStateDisabled)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to list providers for")
	cmd.Flags().BoolVar(&all, "all", false, "list the full plugin catalog instead")

	return cmd
}

func newProvidersStatusCommand() *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cached provider statuses",
		Example: `  # Show what the last init run cached for the default environment
  verdant providers status

  # Same for stage
  verdant providers status --env stage`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pc, err := loadProject(environment)
			if err != nil {
				return err
			}

			store, err := stores.NewSQLiteStore(stores.Config{
				Path: filepath.Join(pc.Root, config.MetaDirName, statusDBFilename),
			})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			statuses, err := store.ListStatuses(ctx, pc.Project.Name, pc.Environment)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(statuses)
			}
			return printStatuses(os.Stdout, statuses)
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to show statuses for")

	return cmd
}

func printStatuses(out io.Writer, statuses []*engine.ProviderStatus) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tREADY\tCONFIG HASH\tCACHED AT")
	for _, status := range statuses {
		hash := status.ConfigHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\n",
			status.Provider, status.Ready, hash, status.CachedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printCatalog(pc *projectContext) error {
	plugins := pc.Registry.List()

	if jsonOutput {
		out := make([]map[string]interface{}, 0, len(plugins))
		for _, plugin := range plugins {
			out = append(out, map[string]interface{}{
				"name":         plugin.Name(),
				"description":  plugin.Description(),
				"dependencies": plugin.Dependencies(),
			})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLUGIN\tDESCRIPTION")
	for _, plugin := range plugins {
		fmt.Fprintf(w, "%s\t%s\n", plugin.Name(), plugin.Description())
	}
	return w.Flush()
}
