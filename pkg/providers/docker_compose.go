package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdant-dev/verdant/pkg/engine"
)

const dockerComposeSchema = `close({
	projects?: [...close({
		name:   string
		path?:  string
		files?: [...string]
	})]
})`

// DockerComposeProject points at one compose project in the repository.
type DockerComposeProject struct {
	// Name identifies the compose project.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Path is the project directory, relative to the project root.
	Path string `yaml:"path" json:"path,omitempty"`

	// Files lists compose files, relative to Path. Defaults to the compose
	// CLI's own file discovery when empty.
	Files []string `yaml:"files" json:"files,omitempty"`
}

// DockerComposeConfig is the docker-compose provider's config block.
type DockerComposeConfig struct {
	// Projects lists the compose projects managed by this provider.
	Projects []DockerComposeProject `yaml:"projects" json:"projects,omitempty" validate:"dive"`
}

type dockerComposePlugin struct{}

func newDockerComposePlugin() *dockerComposePlugin {
	return &dockerComposePlugin{}
}

func (p *dockerComposePlugin) Name() string { return "docker-compose" }

func (p *dockerComposePlugin) Description() string {
	return "Manages Docker Compose projects"
}

func (p *dockerComposePlugin) Schema() string { return dockerComposeSchema }

func (p *dockerComposePlugin) Dependencies() []string { return nil }

func (p *dockerComposePlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &DockerComposeConfig{}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cfg.Projects))
	for i := range cfg.Projects {
		if seen[cfg.Projects[i].Name] {
			return nil, fmt.Errorf("duplicate compose project: %s", cfg.Projects[i].Name)
		}
		seen[cfg.Projects[i].Name] = true
	}

	return cfg, nil
}

// Init resolves each compose project directory and publishes the resolved
// paths as outputs.
func (p *dockerComposePlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*DockerComposeConfig)
	if !ok {
		return nil, engine.NewPermanentError("docker-compose config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	paths := make(map[string]interface{}, len(cfg.Projects))
	for i := range cfg.Projects {
		proj := &cfg.Projects[i]

		dir := req.Root
		if proj.Path != "" {
			dir = filepath.Join(req.Root, proj.Path)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, engine.NewPermanentError(
				fmt.Sprintf("compose project %s: path %s is not a directory", proj.Name, proj.Path), err).
				WithCode(engine.ErrCodeValidation).WithProvider(p.Name())
		}

		for _, file := range proj.Files {
			if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
				return nil, engine.NewPermanentError(
					fmt.Sprintf("compose project %s: missing compose file %s", proj.Name, file), err).
					WithCode(engine.ErrCodeValidation).WithProvider(p.Name())
			}
		}

		paths[proj.Name] = dir
	}

	req.Logger.Debug().Int("projects", len(cfg.Projects)).Msg("Compose provider ready")

	return &engine.InitResponse{
		Outputs: map[string]interface{}{
			"projects": paths,
		},
	}, nil
}
