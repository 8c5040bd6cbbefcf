package providers

import (
	"context"
	"fmt"

	"github.com/verdant-dev/verdant/pkg/engine"
)

const openFaaSSchema = `close({
	hostname?:   string
	gatewayUrl?: string
	faasNetes?: close({
		install?: bool
		values?:  {...}
	})
})`

// OpenFaaSConfig is the openfaas provider's config block.
type OpenFaaSConfig struct {
	// Hostname is the external hostname functions are exposed on.
	Hostname string `yaml:"hostname" json:"hostname,omitempty"`

	// GatewayURL overrides the gateway endpoint used to deploy functions.
	// When unset the gateway is derived from the hostname.
	GatewayURL string `yaml:"gatewayUrl" json:"gatewayUrl,omitempty" validate:"omitempty,url"`

	// FaasNetes configures the in-cluster faas-netes installation.
	FaasNetes OpenFaaSNetesConfig `yaml:"faasNetes" json:"faasNetes"`
}

// OpenFaaSNetesConfig configures the faas-netes controller install.
type OpenFaaSNetesConfig struct {
	// Install manages the faas-netes installation as part of provider init.
	Install bool `yaml:"install" json:"install"`

	// Values are chart values passed to the faas-netes install.
	Values map[string]interface{} `yaml:"values" json:"values,omitempty"`
}

type openFaaSPlugin struct{}

func newOpenFaaSPlugin() *openFaaSPlugin {
	return &openFaaSPlugin{}
}

func (p *openFaaSPlugin) Name() string { return "openfaas" }

func (p *openFaaSPlugin) Description() string {
	return "Deploys functions to an OpenFaaS gateway"
}

func (p *openFaaSPlugin) Schema() string { return openFaaSSchema }

func (p *openFaaSPlugin) Dependencies() []string { return nil }

func (p *openFaaSPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &OpenFaaSConfig{
		FaasNetes: OpenFaaSNetesConfig{Install: true},
	}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *openFaaSPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*OpenFaaSConfig)
	if !ok {
		return nil, engine.NewPermanentError("openfaas config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	gateway := cfg.GatewayURL
	if gateway == "" && cfg.Hostname != "" {
		gateway = fmt.Sprintf("http://%s", cfg.Hostname)
	}

	resp := &engine.InitResponse{
		Outputs: map[string]interface{}{
			"gatewayUrl": gateway,
			"hostname":   cfg.Hostname,
		},
	}

	if gateway == "" {
		resp.Warnings = append(resp.Warnings,
			"no hostname or gatewayUrl configured; functions will only be reachable in-cluster")
	}

	req.Logger.Debug().
		Str("gateway", gateway).
		Bool("installFaasNetes", cfg.FaasNetes.Install).
		Msg("OpenFaaS provider ready")

	return resp, nil
}
