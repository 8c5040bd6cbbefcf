package providers

import (
	"context"

	"github.com/verdant-dev/verdant/pkg/engine"
)

const hadolintSchema = `close({
	autoInject?:           bool
	testFailureThreshold?: "error" | "warning" | "warn" | "none"
})`

// HadolintConfig is the hadolint provider's config block.
type HadolintConfig struct {
	// AutoInject adds a Dockerfile lint test to every container build.
	AutoInject bool `yaml:"autoInject" json:"autoInject"`

	// TestFailureThreshold controls whether lint findings fail the run.
	TestFailureThreshold string `yaml:"testFailureThreshold" json:"testFailureThreshold"`
}

type hadolintPlugin struct{}

func newHadolintPlugin() *hadolintPlugin {
	return &hadolintPlugin{}
}

func (p *hadolintPlugin) Name() string { return "hadolint" }

func (p *hadolintPlugin) Description() string {
	return "Lints Dockerfiles with hadolint"
}

func (p *hadolintPlugin) Schema() string { return hadolintSchema }

func (p *hadolintPlugin) Dependencies() []string { return nil }

func (p *hadolintPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &HadolintConfig{
		AutoInject:           true,
		TestFailureThreshold: string(engine.ThresholdError),
	}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}
	if _, err := engine.ParseFailureThreshold(cfg.TestFailureThreshold); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *hadolintPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*HadolintConfig)
	if !ok {
		return nil, engine.NewPermanentError("hadolint config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	threshold, err := engine.ParseFailureThreshold(cfg.TestFailureThreshold)
	if err != nil {
		return nil, err
	}

	req.Logger.Debug().
		Bool("autoInject", cfg.AutoInject).
		Str("threshold", string(threshold)).
		Msg("Hadolint provider ready")

	return &engine.InitResponse{
		Outputs: map[string]interface{}{
			"autoInject": cfg.AutoInject,
			"threshold":  string(threshold),
		},
	}, nil
}
