package providers

import (
	"context"

	"github.com/verdant-dev/verdant/pkg/engine"
)

// execSchema accepts no plugin-specific fields. The entry-level preInit
// block is the exec provider's whole surface.
const execSchema = `close({})`

// execPlugin is the always-loaded default provider. Projects that declare no
// providers still get exec, so plain script workflows work out of the box.
type execPlugin struct{}

func newExecPlugin() *execPlugin {
	return &execPlugin{}
}

func (p *execPlugin) Name() string { return "exec" }

func (p *execPlugin) Description() string {
	return "Runs local scripts; loaded implicitly in every project"
}

func (p *execPlugin) Schema() string { return execSchema }

func (p *execPlugin) Dependencies() []string { return nil }

// ExecConfig is the exec provider's (empty) config block.
type ExecConfig struct{}

func (p *execPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
	cfg := &ExecConfig{}
	if err := decodeStrict(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *execPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	req.Logger.Debug().Msg("Exec provider ready")
	return &engine.InitResponse{
		Outputs: map[string]interface{}{
			"projectRoot": req.Root,
		},
	}, nil
}
