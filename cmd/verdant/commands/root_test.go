package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdant-dev/verdant/pkg/config"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.ManifestFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return root
}

func inProject(t *testing.T, root string) {
	t.Helper()
	previous := projectDir
	projectDir = root
	t.Cleanup(func() { projectDir = previous })
}

const rootTestManifest = `name: demo
environments:
  - name: dev
  - name: stage
providers:
  - name: terraform
`

func TestLoadProjectDefaultEnvironment(t *testing.T) {
	inProject(t, writeManifest(t, rootTestManifest))

	pc, err := loadProject("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Environment != "dev" {
		t.Errorf("expected default environment dev, got %s", pc.Environment)
	}
}

func TestLoadProjectDeclaredEnvironment(t *testing.T) {
	inProject(t, writeManifest(t, rootTestManifest))

	pc, err := loadProject("stage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Environment != "stage" {
		t.Errorf("expected stage, got %s", pc.Environment)
	}
}

func TestLoadProjectUnknownEnvironment(t *testing.T) {
	inProject(t, writeManifest(t, rootTestManifest))

	_, err := loadProject("ghost")
	if err == nil {
		t.Fatal("expected error for undeclared environment")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("expected the environment in the error, got %v", err)
	}
}

func TestLoadProjectNoEnvironmentsDeclared(t *testing.T) {
	inProject(t, writeManifest(t, "name: demo\n"))

	if _, err := loadProject(""); err == nil {
		t.Fatal("expected error when no environment can be resolved")
	}

	// An explicit environment is rejected the same way.
	_, err := loadProject("dev")
	if err == nil {
		t.Fatal("expected error for an environment the project does not declare")
	}
	if !strings.Contains(err.Error(), "declares no environments") {
		t.Errorf("unexpected error: %v", err)
	}
}
