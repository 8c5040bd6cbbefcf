package providers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/verdant-dev/verdant/pkg/engine"
)

// conftestKubernetesPlugin is a conftest preset for Kubernetes manifests.
// It shares the conftest config surface and implies a dependency on the
// conftest provider when that provider is part of the project.
type conftestKubernetesPlugin struct {
	logger zerolog.Logger
}

func newConftestKubernetesPlugin(logger zerolog.Logger) *conftestKubernetesPlugin {
	return &conftestKubernetesPlugin{logger: logger}
}

func (p *conftestKubernetesPlugin) Name() string { return "conftest-kubernetes" }

func (p *conftestKubernetesPlugin) Description() string {
	return "Validates Kubernetes manifests against OPA Rego policies"
}

func (p *conftestKubernetesPlugin) Schema() string { return conftestSchema }

func (p *conftestKubernetesPlugin) Dependencies() []string {
	return []string{"conftest"}
}

func (p *conftestKubernetesPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &ConftestConfig{
		PolicyPath:           defaultPolicyPath,
		Namespace:            defaultNamespace,
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

func (p *conftestKubernetesPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*ConftestConfig)
	if !ok {
		return nil, engine.NewPermanentError("conftest-kubernetes config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	return initConftest(ctx, p.Name(), p.logger, cfg, req)
}
