package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verdant-dev/verdant/pkg/config"
	"github.com/verdant-dev/verdant/pkg/engine"
)

// Registry holds the built-in plugin catalog. It implements
// engine.PluginRegistry and feeds each plugin's schema into a shared
// config.SchemaRegistry.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]engine.Plugin
	schemas *config.SchemaRegistry
	logger  zerolog.Logger
}

// NewRegistry creates a registry pre-loaded with the built-in plugins.
func NewRegistry(logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		plugins: make(map[string]engine.Plugin),
		schemas: config.NewSchemaRegistry(),
		logger:  logger.With().Str("component", "plugin-registry").Logger(),
	}

	builtins := []engine.Plugin{
		newExecPlugin(),
		newTerraformPlugin(),
		newHadolintPlugin(),
		newConftestPlugin(logger),
		newConftestKubernetesPlugin(logger),
		newOpenFaaSPlugin(),
		newJibPlugin(),
		newOTelCollectorPlugin(),
		newDockerComposePlugin(),
	}

	for _, plugin := range builtins {
		if err := r.Register(plugin); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a plugin to the registry and compiles its config schema.
func (r *Registry) Register(plugin engine.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := plugin.Name()
	if name == "" {
		return engine.NewPermanentError("plugin has empty name", nil).
			WithCode(engine.ErrCodeValidation)
	}

	if _, exists := r.plugins[name]; exists {
		return engine.NewConflictError(fmt.Sprintf("plugin already registered: %s", name), nil)
	}

	if err := r.schemas.RegisterSchema(name, plugin.Schema()); err != nil {
		return engine.NewPermanentError(fmt.Sprintf("invalid schema for plugin %s", name), err).
			WithCode(engine.ErrCodeValidation).WithProvider(name)
	}

	r.plugins[name] = plugin
	r.logger.Debug().Str("plugin", name).Msg("Plugin registered")
	return nil
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (engine.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, engine.NewPermanentError(fmt.Sprintf("unknown provider plugin: %s", name), nil).
			WithCode(engine.ErrCodeNotFound).WithProvider(name)
	}
	return plugin, nil
}

// List returns all registered plugins sorted by name.
func (r *Registry) List() []engine.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	plugins := make([]engine.Plugin, 0, len(names))
	for _, name := range names {
		plugins = append(plugins, r.plugins[name])
	}
	return plugins
}

// Schemas returns the schema registry populated from the registered plugins.
func (r *Registry) Schemas() *config.SchemaRegistry {
	return r.schemas
}

// ValidateConfig validates a provider entry's config block against the
// plugin's schema and typed decoder.
func (r *Registry) ValidateConfig(entry *engine.ProviderEntry) error {
	plugin, err := r.Get(entry.Name)
	if err != nil {
		return err
	}

	if err := r.schemas.Validate(entry.Name, entry.Config); err != nil {
		return engine.NewPermanentError(fmt.Sprintf("invalid config for provider %s", entry.Name), err).
			WithCode(engine.ErrCodeValidation).WithProvider(entry.Name)
	}

	if _, err := plugin.DecodeConfig(entry.Config); err != nil {
		return engine.NewPermanentError(fmt.Sprintf("invalid config for provider %s", entry.Name), err).
			WithCode(engine.ErrCodeValidation).WithProvider(entry.Name)
	}

	return nil
}
