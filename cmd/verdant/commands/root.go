package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/config"
	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/providers"
)

var (
	// Global flags
	projectDir string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "verdant",
		Short: "Verdant - Provider configuration and initialization engine",
		Long: `Verdant resolves, validates and initializes the provider plugins a project
declares in its verdant.yaml manifest.

Features:
  - Declarative provider manifest with per-environment activation
  - Dependency resolution with deterministic ordering
  - Cached provider initialization keyed by config hash
  - Pre-init scripts with captured logs
  - Policy enforcement via OPA (conftest providers)`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project directory (defaults to walking up from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newProvidersCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}

// projectContext bundles everything a command needs after manifest loading.
type projectContext struct {
	Root        string
	Config      *config.ProjectConfig
	Project     *engine.Project
	Environment string
	Registry    *providers.Registry
}

// loadProject discovers the project root, parses the manifest and resolves
// the requested environment.
func loadProject(envFlag string) (*projectContext, error) {
	dir := projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}

	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoader().Load(root)
	if err != nil {
		return nil, err
	}

	environment := envFlag
	if environment == "" {
		environment = cfg.DefaultEnv()
		if environment == "" {
			return nil, fmt.Errorf("no environment given and project %s declares none", cfg.Name)
		}
	} else if !cfg.HasEnvironment(environment) {
		if len(cfg.Environments) == 0 {
			return nil, fmt.Errorf("environment %s requested but project %s declares no environments", environment, cfg.Name)
		}
		return nil, fmt.Errorf("environment %s is not declared in project %s", environment, cfg.Name)
	}

	id, err := config.ProjectID(root)
	if err != nil {
		return nil, err
	}

	project, err := cfg.ToProject(root, id, environment)
	if err != nil {
		return nil, err
	}

	registry, err := providers.NewRegistry(log.Logger)
	if err != nil {
		return nil, err
	}

	return &projectContext{
		Root:        root,
		Config:      cfg,
		Project:     project,
		Environment: environment,
		Registry:    registry,
	}, nil
}
