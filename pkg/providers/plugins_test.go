package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verdant-dev/verdant/pkg/engine"
)

func TestTerraformDecodeDefaults(t *testing.T) {
	plugin := newTerraformPlugin()

	decoded, err := plugin.DecodeConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := decoded.(*TerraformConfig)
	if cfg.Version != defaultTerraformVersion {
		t.Errorf("expected default version %s, got %s", defaultTerraformVersion, cfg.Version)
	}
	if cfg.AutoApply || cfg.AllowDestroys {
		t.Error("autoApply and allowDestroys must default to false")
	}
}

func TestTerraformDecodeOverrides(t *testing.T) {
	plugin := newTerraformPlugin()

	decoded, err := plugin.DecodeConfig(map[string]interface{}{
		"version":   "1.5.0",
		"autoApply": true,
		"workspace": "prod",
		"variables": map[string]interface{}{"instance_type": "t3.micro"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := decoded.(*TerraformConfig)
	if cfg.Version != "1.5.0" {
		t.Errorf("expected version override, got %s", cfg.Version)
	}
	if !cfg.AutoApply {
		t.Error("expected autoApply true")
	}
	if cfg.Variables["instance_type"] != "t3.micro" {
		t.Errorf("expected variables decoded, got %v", cfg.Variables)
	}
}

func TestTerraformDecodeUnknownField(t *testing.T) {
	plugin := newTerraformPlugin()

	if _, err := plugin.DecodeConfig(map[string]interface{}{"autoAply": true}); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestTerraformInitMissingRoot(t *testing.T) {
	plugin := newTerraformPlugin()

	_, err := plugin.Init(context.Background(), engine.InitRequest{
		Root:   t.TempDir(),
		Config: &TerraformConfig{InitRoot: "./does-not-exist", Version: defaultTerraformVersion},
		Logger: zerolog.Nop(),
	})
	if err == nil {
		t.Fatal("expected error for missing initRoot")
	}
}

func TestTerraformInitManualStackWarns(t *testing.T) {
	plugin := newTerraformPlugin()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "infra"), 0o755); err != nil {
		t.Fatalf("failed to create stack dir: %v", err)
	}

	resp, err := plugin.Init(context.Background(), engine.InitRequest{
		Root:   root,
		Config: &TerraformConfig{InitRoot: "infra", Version: defaultTerraformVersion},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected warning for manually managed stack")
	}
}

func TestHadolintDecodeDefaults(t *testing.T) {
	plugin := newHadolintPlugin()

	decoded, err := plugin.DecodeConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := decoded.(*HadolintConfig)
	if !cfg.AutoInject {
		t.Error("autoInject must default to true")
	}
	if cfg.TestFailureThreshold != "error" {
		t.Errorf("threshold must default to error, got %s", cfg.TestFailureThreshold)
	}
}

func TestHadolintDecodeDisableAutoInject(t *testing.T) {
	plugin := newHadolintPlugin()

	decoded, err := plugin.DecodeConfig(map[string]interface{}{"autoInject": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.(*HadolintConfig).AutoInject {
		t.Error("explicit false must override the default")
	}
}

func TestHadolintDecodeThreshold(t *testing.T) {
	plugin := newHadolintPlugin()

	tests := []struct {
		value   string
		wantErr bool
	}{
		{value: "error"},
		{value: "warning"},
		{value: "warn"},
		{value: "none"},
		{value: "fatal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, err := plugin.DecodeConfig(map[string]interface{}{"testFailureThreshold": tt.value})
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConftestDecodeDefaults(t *testing.T) {
	plugin := newConftestPlugin(zerolog.Nop())

	decoded, err := plugin.DecodeConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := decoded.(*ConftestConfig)
	if cfg.PolicyPath != "./policy" {
		t.Errorf("expected default policyPath ./policy, got %s", cfg.PolicyPath)
	}
	if cfg.Namespace != "main" {
		t.Errorf("expected default namespace main, got %s", cfg.Namespace)
	}
	if cfg.TestFailureThreshold != "error" {
		t.Errorf("expected default threshold error, got %s", cfg.TestFailureThreshold)
	}
}

func TestConftestKubernetesImpliesConftest(t *testing.T) {
	plugin := newConftestKubernetesPlugin(zerolog.Nop())

	deps := plugin.Dependencies()
	if len(deps) != 1 || deps[0] != "conftest" {
		t.Errorf("expected implied dependency on conftest, got %v", deps)
	}
}

func TestJibDecodeDefaults(t *testing.T) {
	plugin := newJibPlugin()

	decoded, err := plugin.DecodeConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.(*JibConfig).JDKVersion != 11 {
		t.Errorf("expected default jdkVersion 11, got %d", decoded.(*JibConfig).JDKVersion)
	}

	if _, err := plugin.DecodeConfig(map[string]interface{}{"jdkVersion": 12}); err == nil {
		t.Fatal("expected error for unsupported jdk version")
	}
}

func TestOTelCollectorDecode(t *testing.T) {
	plugin := newOTelCollectorPlugin()

	tests := []struct {
		name    string
		raw     map[string]interface{}
		wantErr bool
	}{
		{
			name: "datadog with key",
			raw: map[string]interface{}{
				"exporters": []interface{}{
					map[string]interface{}{"name": "datadog", "enabled": true, "apiKey": "secret"},
				},
			},
		},
		{
			name: "datadog missing key",
			raw: map[string]interface{}{
				"exporters": []interface{}{
					map[string]interface{}{"name": "datadog", "enabled": true},
				},
			},
			wantErr: true,
		},
		{
			name: "disabled exporter skips checks",
			raw: map[string]interface{}{
				"exporters": []interface{}{
					map[string]interface{}{"name": "otlphttp", "enabled": false},
				},
			},
		},
		{
			name: "otlphttp requires endpoint",
			raw: map[string]interface{}{
				"exporters": []interface{}{
					map[string]interface{}{"name": "otlphttp", "enabled": true},
				},
			},
			wantErr: true,
		},
		{
			name: "unknown exporter",
			raw: map[string]interface{}{
				"exporters": []interface{}{
					map[string]interface{}{"name": "statsd"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.DecodeConfig(tt.raw)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOTelCollectorInitWarnsWithoutExporters(t *testing.T) {
	plugin := newOTelCollectorPlugin()

	resp, err := plugin.Init(context.Background(), engine.InitRequest{
		Config: &OTelCollectorConfig{},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected warning when no exporters are enabled")
	}
}

func TestDockerComposeDecodeDuplicateProject(t *testing.T) {
	plugin := newDockerComposePlugin()

	raw := map[string]interface{}{
		"projects": []interface{}{
			map[string]interface{}{"name": "web"},
			map[string]interface{}{"name": "web"},
		},
	}
	if _, err := plugin.DecodeConfig(raw); err == nil {
		t.Fatal("expected duplicate project error")
	}
}

func TestDockerComposeInitResolvesPaths(t *testing.T) {
	plugin := newDockerComposePlugin()
	root := t.TempDir()
	composeDir := filepath.Join(root, "stack")
	if err := os.MkdirAll(composeDir, 0o755); err != nil {
		t.Fatalf("failed to create compose dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(composeDir, "docker-compose.yaml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write compose file: %v", err)
	}

	resp, err := plugin.Init(context.Background(), engine.InitRequest{
		Root: root,
		Config: &DockerComposeConfig{
			Projects: []DockerComposeProject{
				{Name: "web", Path: "stack", Files: []string{"docker-compose.yaml"}},
			},
		},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths := resp.Outputs["projects"].(map[string]interface{})
	if paths["web"] != composeDir {
		t.Errorf("expected resolved path %s, got %v", composeDir, paths["web"])
	}
}

func TestDockerComposeInitMissingFile(t *testing.T) {
	plugin := newDockerComposePlugin()

	_, err := plugin.Init(context.Background(), engine.InitRequest{
		Root: t.TempDir(),
		Config: &DockerComposeConfig{
			Projects: []DockerComposeProject{
				{Name: "web", Files: []string{"missing.yaml"}},
			},
		},
		Logger: zerolog.Nop(),
	})
	if err == nil {
		t.Fatal("expected error for missing compose file")
	}
}

func TestExecInitOutputs(t *testing.T) {
	plugin := newExecPlugin()
	root := t.TempDir()

	resp, err := plugin.Init(context.Background(), engine.InitRequest{Root: root, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outputs["projectRoot"] != root {
		t.Errorf("expected projectRoot output, got %v", resp.Outputs)
	}
}
