package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdant-dev/verdant/pkg/telemetry"
)

// ProviderEntry is a provider declaration from the project manifest, reduced
// to the fields the resolver and init engine operate on.
type ProviderEntry struct {
	// Name identifies the plugin backing this provider (e.g. "terraform").
	Name string `json:"name"`

	// Dependencies lists provider names that must be resolved before this one.
	// The resolver unions these with the plugin's implied dependencies.
	Dependencies []string `json:"dependencies,omitempty"`

	// Environments restricts where the provider is active.
	// A nil slice means active in every environment; an empty non-nil slice
	// disables the provider in all environments.
	Environments []string `json:"environments,omitempty"`

	// PreInit configures work to run before the provider initializes.
	PreInit *PreInitSpec `json:"preInit,omitempty"`

	// Config holds the plugin-specific configuration fields.
	Config map[string]interface{} `json:"config,omitempty"`
}

// PreInitSpec configures provider pre-initialization.
type PreInitSpec struct {
	// RunScript is a shell command run once per provider, from the project
	// root, before the provider initializes. Its output becomes part of the
	// cached provider status.
	RunScript string `json:"runScript,omitempty"`
}

// ActiveIn reports whether the entry is active in the named environment,
// applying the nil-means-all and empty-means-disabled rules.
func (e *ProviderEntry) ActiveIn(environment string) bool {
	if e.Environments == nil {
		return true
	}
	for _, env := range e.Environments {
		if env == environment {
			return true
		}
	}
	return false
}

// Disabled reports whether the entry is disabled in every environment.
func (e *ProviderEntry) Disabled() bool {
	return e.Environments != nil && len(e.Environments) == 0
}

// Project is the resolved project context for a command invocation.
type Project struct {
	// Name is the project name from the manifest.
	Name string `json:"name"`

	// ID is the persisted random identifier from .verdant/id.
	ID string `json:"id"`

	// Root is the absolute path to the project root directory.
	Root string `json:"root"`

	// Providers are the declared provider entries, including the implicitly
	// loaded exec provider.
	Providers []ProviderEntry `json:"providers"`
}

// InitOptions controls a provider initialization run.
type InitOptions struct {
	// Environment is the active environment name for this invocation.
	Environment string `json:"environment"`

	// ForceRefresh invalidates cached provider statuses before initializing.
	ForceRefresh bool `json:"force_refresh"`
}

// InitRequest is passed to a plugin's Init hook.
type InitRequest struct {
	// Project is the project name.
	Project string `json:"project"`

	// Environment is the active environment name.
	Environment string `json:"environment"`

	// Root is the project root directory.
	Root string `json:"root"`

	// Config is the plugin's decoded configuration with defaults applied.
	Config interface{} `json:"config"`

	// DependencyOutputs maps dependency provider names to their init outputs.
	DependencyOutputs map[string]map[string]interface{} `json:"dependency_outputs,omitempty"`

	// Logger is a child logger scoped to the provider.
	Logger zerolog.Logger `json:"-"`

	// Metrics is the run's metrics collector, nil when metrics are disabled.
	Metrics *telemetry.Metrics `json:"-"`
}

// InitResponse is returned from a plugin's Init hook.
type InitResponse struct {
	// Outputs are provider outputs made available to dependents and cached
	// with the status.
	Outputs map[string]interface{} `json:"outputs,omitempty"`

	// Warnings are non-fatal messages raised during initialization.
	Warnings []string `json:"warnings,omitempty"`
}

// Plugin is the interface all built-in provider plugins implement.
type Plugin interface {
	// Name returns the plugin name used in the manifest's providers list.
	Name() string

	// Description returns a one-line description for listings.
	Description() string

	// Schema returns the CUE schema source for the plugin's config block.
	Schema() string

	// DecodeConfig decodes the raw config block into the plugin's typed
	// config, applying defaults and validating field values.
	DecodeConfig(raw map[string]interface{}) (interface{}, error)

	// Dependencies returns provider names this plugin implicitly depends on.
	Dependencies() []string

	// Init initializes the provider. It runs after the entry's preInit
	// script and after all dependencies initialized.
	Init(ctx context.Context, req InitRequest) (*InitResponse, error)
}

// ProviderStatus is the persisted result of a provider initialization.
type ProviderStatus struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// Environment is the environment the provider was initialized for.
	Environment string `json:"environment"`

	// ConfigHash is the hash of the provider's resolved configuration.
	// A hash mismatch invalidates the cached status.
	ConfigHash string `json:"config_hash"`

	// Ready indicates the provider initialized successfully.
	Ready bool `json:"ready"`

	// Outputs are the provider's init outputs.
	Outputs map[string]interface{} `json:"outputs,omitempty"`

	// Log is the captured preInit script output.
	Log string `json:"log,omitempty"`

	// CachedAt is when the status was persisted.
	CachedAt time.Time `json:"cached_at"`
}

// StatusCache persists provider statuses across command invocations.
// Implementations live in pkg/stores.
type StatusCache interface {
	// Get returns the cached status for the given key, or nil on a miss.
	Get(ctx context.Context, project, environment, provider, configHash string) (*ProviderStatus, error)

	// Put persists a provider status, replacing any previous status for the
	// same (project, environment, provider).
	Put(ctx context.Context, project string, status *ProviderStatus) error

	// Invalidate removes cached statuses for a project environment.
	Invalidate(ctx context.Context, project, environment string) error
}

// PluginRegistry resolves plugin names to plugins.
// The implementation lives in pkg/providers.
type PluginRegistry interface {
	// Get returns the plugin registered under name.
	Get(name string) (Plugin, error)

	// List returns all registered plugins sorted by name.
	List() []Plugin
}

// InitResult is the outcome of initializing a single provider.
type InitResult struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// State is the terminal state the provider reached.
	State ProviderState `json:"state"`

	// Cached indicates the status was served from the cache.
	Cached bool `json:"cached"`

	// Outputs are the provider's init outputs.
	Outputs map[string]interface{} `json:"outputs,omitempty"`

	// Error is the failure message when State is ProviderStateFailed.
	Error string `json:"error,omitempty"`

	// Duration is how long initialization took.
	Duration time.Duration `json:"duration"`
}

// InitSummary is the outcome of a full initialization run.
type InitSummary struct {
	// RunID uniquely identifies this initialization run.
	RunID string `json:"run_id"`

	// Environment is the environment the run executed for.
	Environment string `json:"environment"`

	// Results holds one entry per active provider, in initialization order.
	Results []InitResult `json:"results"`

	// Disabled lists providers pruned by the environment filter.
	Disabled []string `json:"disabled,omitempty"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration"`
}

// Failed reports whether any provider failed to initialize.
func (s *InitSummary) Failed() bool {
	for i := range s.Results {
		if s.Results[i].State == ProviderStateFailed {
			return true
		}
	}
	return false
}
