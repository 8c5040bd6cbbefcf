package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/config"
	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/stores"
	"github.com/verdant-dev/verdant/pkg/telemetry"
)

// statusDBFilename is the status cache database inside the project meta dir.
const statusDBFilename = "status.db"

func newInitCommand() *cobra.Command {
	var (
		environment   string
		forceRefresh  bool
		metricsListen string
		traceExporter string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the project's providers",
		Long: `Initialize the project's providers for an environment, in dependency
order. Providers whose configuration is unchanged since the last successful
run are served from the status cache; --force-refresh discards the cache
first. Each provider's preInit script runs before its plugin initializes.`,
		Example: `  # Initialize providers for the default environment
  verdant init

  # Re-initialize everything for stage
  verdant init --env stage --force-refresh`,
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

			opts := []engine.Option{engine.WithLogger(log.Logger)}
			if metricsListen != "" {
				cfg := telemetry.DefaultConfig().Metrics
				cfg.Enabled = true
				cfg.ListenAddress = metricsListen
				metrics, err := telemetry.NewMetrics(cfg)
				if err != nil {
					return err
				}
				go func() {
					if err := metrics.Serve(); err != nil {
						log.Warn().Err(err).Msg("Metrics endpoint stopped")
					}
				}()
				opts = append(opts, engine.WithMetrics(metrics))
			}
			if traceExporter != "" {
				cfg := telemetry.DefaultConfig().Tracing
				cfg.Enabled = true
				cfg.Exporter = traceExporter
				tracer, err := telemetry.NewTracer(cfg, "verdant", cmd.Root().Version, pc.Environment)
				if err != nil {
					return err
				}
				defer func() {
					if err := tracer.Shutdown(ctx); err != nil {
						log.Warn().Err(err).Msg("Tracer shutdown failed")
					}
				}()
				opts = append(opts, engine.WithTracer(tracer))
			}

			eng := engine.New(pc.Registry, store, opts...)
			summary, err := eng.Init(ctx, pc.Project, engine.InitOptions{
				Environment:  pc.Environment,
				ForceRefresh: forceRefresh,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := json.NewEncoder(os.Stdout).Encode(summary); err != nil {
					return err
				}
			} else {
				printSummary(summary)
			}

			if summary.Failed() {
				return fmt.Errorf("one or more providers failed to initialize")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to initialize providers for")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "discard cached provider statuses before initializing")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().StringVar(&traceExporter, "trace", "", "export run traces with this exporter (otlp, stdout, none)")

	return cmd
}

func printSummary(summary *engine.InitSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATE\tCACHED\tDURATION")
	for _, result := range summary.Results {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", result.Provider, result.State, result.Cached, result.Duration.Round(time.Millisecond))
	}
	for _, name := range summary.Disabled {
		fmt.Fprintf(w, "%s\t%s\t\t\n", name, engine.ProviderStateDisabled)
	}
	w.Flush()

	for _, result := range summary.Results {
		if result.Error != "" {
			fmt.Fprintf(os.Stderr, "provider %s: %s\n", result.Provider, result.Error)
		}
	}
}
