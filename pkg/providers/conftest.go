package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/policy"
)

const (
	defaultPolicyPath = "./policy"
	defaultNamespace  = "main"
)

const conftestSchema = `close({
	policyPath?:           string
	namespace?:            string
	testFailureThreshold?: "error" | "warning" | "warn" | "none"
	files?:                [...string]
})`

// ConftestConfig is the conftest provider's config block.
type ConftestConfig struct {
	// PolicyPath is the directory holding the Rego policies, relative to the
	// project root.
	PolicyPath string `yaml:"policyPath" json:"policyPath"`

	// Namespace is the Rego package whose deny/violation/warn rules are
	// evaluated.
	Namespace string `yaml:"namespace" json:"namespace"`

	// TestFailureThreshold controls whether matched deny rules fail init.
	TestFailureThreshold string `yaml:"testFailureThreshold" json:"testFailureThreshold"`

	// Files lists YAML documents, relative to the project root, to evaluate
	// during provider init. Dependent providers may evaluate more later.
	Files []string `yaml:"files" json:"files,omitempty"`
}

type conftestPlugin struct {
	logger zerolog.Logger
}

func newConftestPlugin(logger zerolog.Logger) *conftestPlugin {
	return &conftestPlugin{logger: logger}
}

func (p *conftestPlugin) Name() string { return "conftest" }

func (p *conftestPlugin) Description() string {
	return "Validates configuration files against OPA Rego policies"
}

func (p *conftestPlugin) Schema() string { return conftestSchema }

func (p *conftestPlugin) Dependencies() []string { return nil }

func (p *conftestPlugin) DecodeConfig(raw map[string]interface{}) (interface{}, error) {
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

// Init loads and compiles the configured policies, then evaluates any
// configured files against them, applying the failure threshold.
func (p *conftestPlugin) Init(ctx context.Context, req engine.InitRequest) (*engine.InitResponse, error) {
	cfg, ok := req.Config.(*ConftestConfig)
	if !ok {
		return nil, engine.NewPermanentError("conftest config has unexpected type", nil).
			WithCode(engine.ErrCodeInternal).WithProvider(p.Name())
	}

	return initConftest(ctx, p.Name(), p.logger, cfg, req)
}

// initConftest is shared between the conftest plugin and its presets.
func initConftest(ctx context.Context, name string, logger zerolog.Logger, cfg *ConftestConfig, req engine.InitRequest) (*engine.InitResponse, error) {
	threshold, err := engine.ParseFailureThreshold(cfg.TestFailureThreshold)
	if err != nil {
		return nil, err
	}

	policyPath := cfg.PolicyPath
	if !filepath.IsAbs(policyPath) {
		policyPath = filepath.Join(req.Root, policyPath)
	}

	eng := policy.NewEngine(logger)
	if req.Metrics != nil {
		eng.SetMetrics(req.Metrics)
	}
	if err := eng.Load(ctx, []string{policyPath}); err != nil {
		return nil, engine.NewPermanentError(
			fmt.Sprintf("failed to load policies from %s", cfg.PolicyPath), err).
			WithCode(engine.ErrCodeValidation).WithProvider(name)
	}

	resp := &engine.InitResponse{
		Outputs: map[string]interface{}{
			"policyPath":  policyPath,
			"namespace":   cfg.Namespace,
			"policyCount": len(eng.Policies()),
		},
	}

	if len(eng.Policies()) == 0 {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("no policies found under %s", cfg.PolicyPath))
		return resp, nil
	}

	var failures []string
	for _, file := range cfg.Files {
		docs, err := readYAMLDocs(filepath.Join(req.Root, file))
		if err != nil {
			return nil, engine.NewPermanentError(
				fmt.Sprintf("failed to read %s", file), err).
				WithCode(engine.ErrCodeValidation).WithProvider(name)
		}

		for _, doc := range docs {
			result, err := eng.Evaluate(ctx, cfg.Namespace, doc)
			if err != nil {
				return nil, engine.NewPermanentError(
					fmt.Sprintf("policy evaluation failed for %s", file), err).
					WithCode(engine.ErrCodeProviderFailed).WithProvider(name)
			}
			for _, finding := range result.Failures {
				failures = append(failures, fmt.Sprintf("%s: %s", file, finding.Message))
			}
			for _, finding := range result.Warnings {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s: %s", file, finding.Message))
			}
		}
	}

	if len(failures) > 0 {
		switch threshold {
		case engine.ThresholdError:
			return nil, engine.NewPermanentError(
				fmt.Sprintf("%d policy violation(s): %s", len(failures), strings.Join(failures, "; ")), nil).
				WithCode(engine.ErrCodeProviderFailed).WithProvider(name)
		case engine.ThresholdWarning:
			resp.Warnings = append(resp.Warnings, failures...)
		case engine.ThresholdNone:
			logger.Debug().Int("violations", len(failures)).Msg("Policy violations ignored by threshold")
		}
	}

	return resp, nil
}

// readYAMLDocs reads all documents from a YAML file.
func readYAMLDocs(path string) ([]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []interface{}
	dec := yaml.NewDecoder(f)
	for {
		var doc interface{}
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
