package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const denyPolicy = `package main

deny[msg] {
	input.kind == "Deployment"
	not input.spec.replicas
	msg := "deployments must set replicas"
}

warn[msg] {
	input.kind == "Service"
	msg := "services are reviewed manually"
}
`

const violationPolicy = `package k8s

violation[msg] {
	input.spec.privileged
	msg := "privileged containers are not allowed"
}
`

func writePolicies(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write policy %s: %v", name, err)
		}
	}
	return dir
}

func newTestEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	dir := writePolicies(t, files)

	eng := NewEngine(zerolog.Nop())
	if err := eng.Load(context.Background(), []string{dir}); err != nil {
		t.Fatalf("failed to load policies: %v", err)
	}
	return eng
}

func TestEvaluateDeny(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"deploy.rego": denyPolicy})

	input := map[string]interface{}{
		"kind": "Deployment",
		"spec": map[string]interface{}{},
	}

	result, err := eng.Evaluate(context.Background(), "main", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Failed() {
		t.Fatal("expected a failure finding")
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Message != "deployments must set replicas" {
		t.Errorf("unexpected message: %s", result.Failures[0].Message)
	}
	if result.Failures[0].Severity != SeverityFailure {
		t.Errorf("expected failure severity, got %s", result.Failures[0].Severity)
	}
}

func TestEvaluatePassing(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"deploy.rego": denyPolicy})

	input := map[string]interface{}{
		"kind": "Deployment",
		"spec": map[string]interface{}{"replicas": 3},
	}

	result, err := eng.Evaluate(context.Background(), "main", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed() {
		t.Errorf("expected pass, got failures %v", result.Failures)
	}
}

func TestEvaluateWarn(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"deploy.rego": denyPolicy})

	result, err := eng.Evaluate(context.Background(), "main", map[string]interface{}{"kind": "Service"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Failed() {
		t.Errorf("warn rules must not fail the result: %v", result.Failures)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].Severity != SeverityWarning {
		t.Errorf("expected warning severity, got %s", result.Warnings[0].Severity)
	}
}

func TestEvaluateViolationRule(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"k8s.rego": violationPolicy})

	input := map[string]interface{}{
		"spec": map[string]interface{}{"privileged": true},
	}

	result, err := eng.Evaluate(context.Background(), "k8s", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected violation rule to produce a failure, got %+v", result)
	}
}

func TestEvaluateUnknownNamespace(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"deploy.rego": denyPolicy})

	result, err := eng.Evaluate(context.Background(), "other", map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed() || len(result.Warnings) > 0 {
		t.Errorf("namespace without policies must produce no findings: %+v", result)
	}
}

func TestEvaluateNoPolicies(t *testing.T) {
	eng := NewEngine(zerolog.Nop())
	if err := eng.Load(context.Background(), []string{t.TempDir()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), "main", map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Policies != 0 || result.Failed() {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestLoadInvalidPolicy(t *testing.T) {
	dir := writePolicies(t, map[string]string{"bad.rego": "package main\n\ndeny[msg] {"})

	eng := NewEngine(zerolog.Nop())
	if err := eng.Load(context.Background(), []string{dir}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadSkipsTestFiles(t *testing.T) {
	eng := newTestEngine(t, map[string]string{
		"deploy.rego":      denyPolicy,
		"deploy_test.rego": "package main\n\ntest_deny { true }\n",
		"notes.txt":        "not a policy",
	})

	policies := eng.Policies()
	if len(policies) != 1 {
		t.Fatalf("expected only the policy module, got %d", len(policies))
	}
	if policies[0].Package != "main" {
		t.Errorf("expected package main, got %s", policies[0].Package)
	}
}
