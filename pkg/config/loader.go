package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ManifestFilename is the project manifest filename.
const ManifestFilename = "verdant.yaml"

// MetaDirName is the per-project directory holding the project ID, the
// status cache database and preInit logs.
const MetaDirName = ".verdant"

// Loader parses and validates project manifests.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(),
	}
}

// FindProjectRoot walks up from dir looking for the project manifest and
// returns the directory containing it.
func FindProjectRoot(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		manifestPath := filepath.Join(current, ManifestFilename)
		if _, err := os.Stat(manifestPath); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("not a project directory (no %s found in %s or any parent)", ManifestFilename, dir)
		}
		current = parent
	}
}

// Load reads and validates the manifest in the given project root.
func (l *Loader) Load(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, ManifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}

	return l.Parse(data)
}

// Parse decodes and validates manifest bytes.
func (l *Loader) Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project manifest: %w", err)
	}

	if err := l.validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid project manifest: %w", err)
	}

	if err := l.validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate applies the manifest rules the struct tags cannot express.
func (l *Loader) validate(cfg *ProjectConfig) error {
	envs := make(map[string]bool, len(cfg.Environments))
	for _, env := range cfg.Environments {
		if envs[env.Name] {
			return fmt.Errorf("invalid project manifest: duplicate environment %q", env.Name)
		}
		envs[env.Name] = true
	}

	if cfg.DefaultEnvironment != "" && !envs[cfg.DefaultEnvironment] {
		return fmt.Errorf("invalid project manifest: defaultEnvironment %q is not a declared environment", cfg.DefaultEnvironment)
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		if seen[pc.Name] {
			return fmt.Errorf("invalid project manifest: duplicate provider %q", pc.Name)
		}
		seen[pc.Name] = true

		// A listed environment must exist; an empty list is the documented
		// way to disable a provider and stays valid.
		for _, env := range pc.Environments {
			if !envs[env] {
				return fmt.Errorf("invalid project manifest: provider %q references unknown environment %q", pc.Name, env)
			}
		}

		for _, dep := range pc.Dependencies {
			if strings.TrimSpace(dep) == "" {
				return fmt.Errorf("invalid project manifest: provider %q has an empty dependency name", pc.Name)
			}
		}
	}

	return nil
}

// ProjectID returns the persisted project identifier from .verdant/id,
// generating and persisting a new one on first use.
func ProjectID(root string) (string, error) {
	metaDir := filepath.Join(root, MetaDirName)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", MetaDirName, err)
	}

	idPath := filepath.Join(metaDir, "id")
	if data, err := os.ReadFile(idPath); err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := writeFileAtomic(idPath, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist project id: %w", err)
	}
	return id, nil
}

// writeFileAtomic writes data via a temp file and rename so a crash mid-write
// cannot leave a truncated file behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
