package config

import (
	"fmt"

	"github.com/verdant-dev/verdant/pkg/engine"
)

// ProjectConfig is the root of the project manifest (verdant.yaml).
type ProjectConfig struct {
	// Name is the project name.
	Name string `yaml:"name" json:"name" validate:"required"`

	// DefaultEnvironment is the environment used when none is given on the
	// command line. Defaults to the first declared environment.
	DefaultEnvironment string `yaml:"defaultEnvironment,omitempty" json:"defaultEnvironment,omitempty"`

	// Environments are the named deployment contexts for this project.
	Environments []EnvironmentConfig `yaml:"environments,omitempty" json:"environments,omitempty" validate:"dive"`

	// Providers are the provider declarations.
	Providers []ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty" validate:"dive"`

	// Variables are project-level template variables, referenced from
	// provider config values as ${var.NAME}.
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// EnvironmentConfig declares a named environment.
type EnvironmentConfig struct {
	// Name is the environment name (e.g. "dev", "stage").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Variables override project variables for this environment.
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// ProviderConfig is a provider declaration in the manifest. Plugin-specific
// fields sit inline next to the shared keys.
type ProviderConfig struct {
	// Name identifies the plugin (e.g. "terraform", "hadolint").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Dependencies lists providers that should be resolved before this one.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// Environments restricts which environments the provider is active in.
	// Omitting the field means active everywhere; an empty list disables the
	// provider entirely.
	Environments []string `yaml:"environments,omitempty" json:"environments,omitempty"`

	// PreInit configures provider pre-initialization.
	PreInit *PreInitSpec `yaml:"preInit,omitempty" json:"preInit,omitempty"`

	// Config captures the plugin-specific fields.
	Config map[string]interface{} `yaml:",inline" json:"config,omitempty"`
}

// PreInitSpec mirrors engine.PreInitSpec on the manifest surface.
type PreInitSpec struct {
	// RunScript is a shell command run from the project root before the
	// provider initializes.
	RunScript string `yaml:"runScript,omitempty" json:"runScript,omitempty"`
}

// EnvironmentNames returns the declared environment names in order.
func (c *ProjectConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for _, env := range c.Environments {
		names = append(names, env.Name)
	}
	return names
}

// HasEnvironment reports whether the named environment is declared.
func (c *ProjectConfig) HasEnvironment(name string) bool {
	for _, env := range c.Environments {
		if env.Name == name {
			return true
		}
	}
	return false
}

// DefaultEnv resolves the environment to use when none is requested.
func (c *ProjectConfig) DefaultEnv() string {
	if c.DefaultEnvironment != "" {
		return c.DefaultEnvironment
	}
	if len(c.Environments) > 0 {
		return c.Environments[0].Name
	}
	return ""
}

// VariablesFor merges project variables with the named environment's
// overrides and adds the implicit environment.name variable.
func (c *ProjectConfig) VariablesFor(environment string) map[string]string {
	vars := make(map[string]string, len(c.Variables)+1)
	for k, v := range c.Variables {
		vars["var."+k] = v
	}
	for _, env := range c.Environments {
		if env.Name == environment {
			for k, v := range env.Variables {
				vars["var."+k] = v
			}
		}
	}
	vars["environment.name"] = environment
	return vars
}

// ToProject converts the manifest into the engine's project representation
// for the given environment, expanding template variables in provider config
// values and injecting the implicitly loaded exec provider.
func (c *ProjectConfig) ToProject(root, id, environment string) (*engine.Project, error) {
	vars := c.VariablesFor(environment)

	entries := make([]engine.ProviderEntry, 0, len(c.Providers)+1)
	hasExec := false

	for _, pc := range c.Providers {
		if pc.Name == "exec" {
			hasExec = true
		}

		raw, err := ExpandConfig(pc.Config, vars)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}

		entry := engine.ProviderEntry{
			Name:         pc.Name,
			Dependencies: pc.Dependencies,
			Environments: pc.Environments,
			Config:       raw,
		}
		if pc.PreInit != nil {
			script, err := ExpandVars(pc.PreInit.RunScript, vars)
			if err != nil {
				return nil, fmt.Errorf("provider %s: preInit: %w", pc.Name, err)
			}
			entry.PreInit = &engine.PreInitSpec{RunScript: script}
		}
		entries = append(entries, entry)
	}

	// exec is always loaded, whether or not the manifest declares it.
	if !hasExec {
		entries = append(entries, engine.ProviderEntry{Name: "exec"})
	}

	return &engine.Project{
		Name:      c.Name,
		ID:        id,
		Root:      root,
		Providers: entries,
	}, nil
}
