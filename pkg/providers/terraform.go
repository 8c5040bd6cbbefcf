package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdant-dev/verdant/pkg/engine"
)

// defaultTerraformVersion is the pinned CLI version used when the config
// does not request one.
const defaultTerraformVersion = "1.8.5"

const terraformSchema = `close({
	allowDestroys?: bool
	autoApply?:     bool
	initRoot?:      string
	variables?:     {...}
	version?:       string
	workspace?:     string
})`

// TerraformConfig is the terraform provider's config block.
type TerraformConfig struct {
	// AllowDestroys permits plans that destroy existing resources.
	AllowDestroys bool `yaml:"allowDestroys" json:"allowDestroys"`

	// AutoApply applies pending changes during init instead of stopping with
	// a warning when the stack is out of date.
	AutoApply bool `yaml:"autoApply" json:"autoApply"`

	// InitRoot points at a terraform working directory, relative to the
	// project root, that should be applied as part of provider init.
	InitRoot string `yaml:"initRoot" json:"initRoot,omitempty"`

	// Variables are terraform input variables shared by every stack.
	Variables map[string]interface{} `yaml:"variables" json:"variables,omitempty"`

	// Version pins the terraform CLI version.
	Version string `yaml:"version" json:"version"`

	// Workspace selects the terraform workspace to use.
	Workspace string `yaml:"workspace" json:"workspace,omitempty"`
}

type terraformPlugin struct{}

func newTerraformPlugin() *terraformPlugin {
	return &terraformPlugin{}
}

func (p *terraformPlugin) Name() string { return "terraform" }

func (p *terraformPlugin) Description() string {
	return "Provisions infrastructure from Terraform stacks"
}

func (p *terraformPlugin) Schema() string { return terraformSchema }

func (p *terraformPlugin) Dependencies() []string { return nil }

func (p *terraformPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &TerraformConfig{Version: defaultTerraformVersion}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init validates the configured initRoot and publishes the resolved stack
// settings as outputs for dependent providers.
func (p *terraformPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*TerraformConfig)
	if !ok {
		return nil, engine.NewPermanentError("terraform config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	resp := &engine.InitResponse{
		Outputs: map[string]interface{}{
			"version":   cfg.Version,
			"workspace": cfg.Workspace,
		},
	}

	if cfg.InitRoot == "" {
		return resp, nil
	}

	root := filepath.Join(req.Root, cfg.InitRoot)
	info, err := os.Stat(root)
	if err != nil {
		return nil, engine.NewPermanentError(
			fmt.Sprintf("terraform initRoot %s does not exist", cfg.InitRoot), err).
			WithCode(engine.ErrCodeValidation).WithProvider(p.Name())
	}
	if !info.IsDir() {
		return nil, engine.NewPermanentError(
			fmt.Sprintf("terraform initRoot %s is not a directory", cfg.InitRoot), nil).
			WithCode(engine.ErrCodeValidation).WithProvider(p.Name())
	}

	resp.Outputs["initRoot"] = root
	if !cfg.AutoApply {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("stack %s is managed manually (autoApply is false); apply pending changes with terraform", cfg.InitRoot))
	}

	req.Logger.Info().
		Str("initRoot", cfg.InitRoot).
		Bool("autoApply", cfg.AutoApply).
		Msg("Terraform stack registered")

	return resp, nil
}
