package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verdant-dev/verdant/pkg/config"
	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/policy"
	"github.com/verdant-dev/verdant/pkg/providers"
)

func newDevCommand() *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Watch the manifest and policies, re-validate on change",
		Long: `Watch the project manifest and the conftest providers' policy directories,
re-running validation whenever either changes. Useful while iterating on
provider configuration or Rego policies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pc, err := loadProject(environment)
			if err != nil {
				return err
			}

			revalidate(pc.Environment)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			// Watch the project root rather than the manifest file itself;
			// editors often replace the file, which drops a file-level watch.
			if err := watcher.Add(pc.Root); err != nil {
				return fmt.Errorf("failed to watch %s: %w", pc.Root, err)
			}

			trigger := make(chan struct{}, 1)

			dirs := policyDirs(pc)
			if len(dirs) > 0 {
				go func() {
					err := policy.NewLoader(log.Logger).Watch(ctx, dirs, func(path string) {
						if isPolicyPath(path) {
							poke(trigger)
						}
					})
					if err != nil && !errors.Is(err, context.Canceled) {
						log.Warn().Err(err).Msg("Policy watch stopped")
					}
				}()
			}

			log.Info().Str("root", pc.Root).Strs("policy_dirs", dirs).
				Msg("Watching for manifest and policy changes")
			return watchLoop(ctx, watcher, trigger, pc.Environment)
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "environment to validate for")

	return cmd
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger chan struct{}, environment string) error {
	// Debounce bursts of write events from editors.
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Name == "" || !isManifestPath(event.Name) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, func() {
				poke(trigger)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watch error")

		case <-trigger:
			revalidate(environment)
		}
	}
}

// poke requests a revalidation without blocking when one is already pending.
func poke(trigger chan struct{}) {
	select {
	case trigger <- struct{}{}:
	default:
	}
}

func isManifestPath(path string) bool {
	return filepath.Base(path) == config.ManifestFilename
}

// isPolicyPath matches the policy files the loader would pick up.
func isPolicyPath(path string) bool {
	return strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, "_test.rego")
}

// policyDirs resolves the distinct policy directories of the project's
// conftest providers.
func policyDirs(pc *projectContext) []string {
	seen := make(map[string]bool)
	var dirs []string

	for i := range pc.Project.Providers {
		entry := &pc.Project.Providers[i]
		plugin, err := pc.Registry.Get(entry.Name)
		if err != nil {
			continue
		}
		decoded, err := plugin.DecodeConfig(entry.Config)
		if err != nil {
			continue
		}
		cfg, ok := decoded.(*providers.ConftestConfig)
		if !ok {
			continue
		}

		dir := cfg.PolicyPath
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(pc.Root, dir)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	return dirs
}

func revalidate(environment string) {
	pc, err := loadProject(environment)
	if err != nil {
		log.Error().Err(err).Msg("Manifest invalid")
		return
	}

	for i := range pc.Project.Providers {
		if err := pc.Registry.ValidateConfig(&pc.Project.Providers[i]); err != nil {
			log.Error().Err(err).Msg("Provider config invalid")
			return
		}
	}

	eng := engine.New(pc.Registry, nil, engine.WithLogger(log.Logger))
	graph, _, err := eng.Resolve(pc.Project, pc.Environment)
	if err != nil {
		log.Error().Err(err).Msg("Dependency resolution failed")
		return
	}

	log.Info().
		Str("environment", pc.Environment).
		Strs("order", graph.Order).
		Msg("Manifest valid")
}
