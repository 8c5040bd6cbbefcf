package providers

import (
	"context"
	"fmt"

	"github.com/verdant-dev/verdant/pkg/engine"
)

const otelCollectorSchema = `close({
	exporters?: [...close({
		name:       "datadog" | "newrelic" | "otlphttp" | "prometheus"
		enabled?:   bool
		endpoint?:  string
		apiKey?:    string
		headers?:   {[string]: string}
		namespace?: string
	})]
})`

// OTelExporterConfig configures a single collector exporter.
type OTelExporterConfig struct {
	// Name selects the exporter type.
	Name string `yaml:"name" json:"name" validate:"required,oneof=datadog newrelic otlphttp prometheus"`

	// Enabled toggles the exporter without removing its config.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Endpoint is the exporter target endpoint, where applicable.
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`

	// APIKey authenticates against hosted backends (datadog, newrelic).
	APIKey string `yaml:"apiKey" json:"apiKey,omitempty"`

	// Headers are extra headers sent by the otlphttp exporter.
	Headers map[string]string `yaml:"headers" json:"headers,omitempty"`

	// Namespace prefixes metric names for the prometheus exporter.
	Namespace string `yaml:"namespace" json:"namespace,omitempty"`
}

// OTelCollectorConfig is the otel-collector provider's config block.
type OTelCollectorConfig struct {
	// Exporters lists the collector's configured exporters.
	Exporters []OTelExporterConfig `yaml:"exporters" json:"exporters,omitempty" validate:"dive"`
}

type otelCollectorPlugin struct{}

func newOTelCollectorPlugin() *otelCollectorPlugin {
	return &otelCollectorPlugin{}
}

func (p *otelCollectorPlugin) Name() string { return "otel-collector" }

func (p *otelCollectorPlugin) Description() string {
	return "Runs an OpenTelemetry collector forwarding telemetry to configured exporters"
}

func (p *otelCollectorPlugin) Schema() string { return otelCollectorSchema }

func (p *otelCollectorPlugin) Dependencies() []string { return nil }

func (p *otelCollectorPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &OTelCollectorConfig{}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Exporters {
		exp := &cfg.Exporters[i]
		switch exp.Name {
		case "datadog", "newrelic":
			if exp.Enabled && exp.APIKey == "" {
				return nil, fmt.Errorf("exporter %s requires apiKey", exp.Name)
			}
		case "otlphttp":
			if exp.Enabled && exp.Endpoint == "" {
				return nil, fmt.Errorf("exporter otlphttp requires endpoint")
			}
		}
	}

	return cfg, nil
}

func (p *otelCollectorPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*OTelCollectorConfig)
	if !ok {
		return nil, engine.NewPermanentError("otel-collector config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	enabled := make([]string, 0, len(cfg.Exporters))
	for i := range cfg.Exporters {
		if cfg.Exporters[i].Enabled {
			enabled = append(enabled, cfg.Exporters[i].Name)
		}
	}

	resp := &engine.InitResponse{
		Outputs: map[string]interface{}{
			"exporters": enabled,
		},
	}

	if len(enabled) == 0 {
		resp.Warnings = append(resp.Warnings, "no exporters enabled; collected telemetry will be dropped")
	}

	req.Logger.Debug().Strs("exporters", enabled).Msg("Collector provider ready")
	return resp, nil
}
