package providers

import (
	"context"
	"fmt"

	"github.com/verdant-dev/verdant/pkg/engine"
)

const defaultJibJDKVersion = 11

const jibSchema = `close({
	jdkVersion?: 8 | 11 | 13 | 17 | 21
})`

// JibConfig is the jib provider's config block.
type JibConfig struct {
	// JDKVersion is the JDK major version used for container builds.
	JDKVersion int `yaml:"jdkVersion" json:"jdkVersion" validate:"oneof=8 11 13 17 21"`
}

type jibPlugin struct{}

func newJibPlugin() *jibPlugin {
	return &jibPlugin{}
}

func (p *jibPlugin) Name() string { return "jib" }

func (p *jibPlugin) Description() string {
	return "Builds JVM container images with Jib"
}

func (p *jibPlugin) Schema() string { return jibSchema }

func (p *jibPlugin) Dependencies() []string { return nil }

func (p *jibPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &JibConfig{JDKVersion: defaultJibJDKVersion}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *jibPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*JibConfig)
	if !ok {
		return nil, engine.NewPermanentError("jib config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	req.Logger.Debug().Int("jdkVersion", cfg.JDKVersion).Msg("Jib provider ready")

	return &engine.InitResponse{
		Outputs: map[string]interface{}{
			"jdkVersion": fmt.Sprintf("%d", cfg.JDKVersion),
		},
	}, nil
}
