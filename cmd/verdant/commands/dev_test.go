package commands

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verdant-dev/verdant/pkg/engine"
	"github.com/verdant-dev/verdant/pkg/providers"
)

func TestIsManifestPath(t *testing.T) {
	if !isManifestPath(filepath.Join("some", "project", "verdant.yaml")) {
		t.Error("expected the manifest to match")
	}
	if isManifestPath(filepath.Join("some", "project", "values.yaml")) {
		t.Error("expected other files not to match")
	}
}

func TestIsPolicyPath(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"policy/deny.rego", true},
		{"policy/deny_test.rego", false},
		{"policy/deny.rego.bak", false},
		{"verdant.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isPolicyPath(tt.path); got != tt.expected {
				t.Errorf("isPolicyPath(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestPolicyDirs(t *testing.T) {
	registry, err := providers.NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	root := t.TempDir()
	pc := &projectContext{
		Root:     root,
		Registry: registry,
		Project: &engine.Project{
			Name: "demo",
			Root: root,
			Providers: []engine.ProviderEntry{
				{Name: "exec"},
				{Name: "conftest", Config: map[string]interface{}{"policyPath": "./policies"}},
				{Name: "conftest-kubernetes", Config: map[string]interface{}{"policyPath": "./policies"}},
				{Name: "terraform"},
			},
		},
	}

	dirs := policyDirs(pc)
	if len(dirs) != 1 {
		t.Fatalf("expected one distinct policy dir, got %v", dirs)
	}
	if dirs[0] != filepath.Join(root, "policies") {
		t.Errorf("expected resolved policy dir, got %s", dirs[0])
	}
}

func TestPolicyDirsWithoutConftest(t *testing.T) {
	registry, err := providers.NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	pc := &projectContext{
		Root:     t.TempDir(),
		Registry: registry,
		Project: &engine.Project{
			Providers: []engine.ProviderEntry{{Name: "exec"}, {Name: "jib"}},
		},
	}

	if dirs := policyDirs(pc); len(dirs) != 0 {
		t.Errorf("expected no policy dirs, got %v", dirs)
	}
}
