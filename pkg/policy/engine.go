package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

// MetricsRecorder receives evaluation outcomes, keyed by severity.
type MetricsRecorder interface {
	RecordPolicyEvaluation(namespace string, violations map[string]int)
}

// Engine compiles and evaluates Rego policies against an input document.
type Engine struct {
	mu       sync.RWMutex
	policies []Policy
	logger   zerolog.Logger
	loader   *Loader
	metrics  MetricsRecorder
}

// SetMetrics attaches a metrics recorder. A nil recorder disables recording.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.mu.Lock()
	e.metrics = m
	e.mu.Unlock()
}

// NewEngine creates a policy engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "policy-engine").Logger(),
		loader: NewLoader(logger),
	}
}

// Load loads and compiles policies from the given paths, replacing any
// previously loaded set.
func (e *Engine) Load(ctx context.Context, paths []string) error {
	policies, err := e.loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}

	// Compile up front so syntax errors surface at load time, not at the
	// first evaluation.
	for i := range policies {
		if _, err := ast.ParseModule(policies[i].Path, policies[i].Rego); err != nil {
			return fmt.Errorf("failed to parse policy %s: %w", policies[i].Name, err)
		}
	}

	e.mu.Lock()
	e.policies = policies
	e.mu.Unlock()

	e.logger.Debug().Int("count", len(policies)).Msg("Policies compiled")
	return nil
}

// Policies returns the loaded policies.
func (e *Engine) Policies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// Evaluate runs the loaded policies' deny, violation and warn rules in the
// given package namespace against the input document.
func (e *Engine) Evaluate(ctx context.Context, namespace string, input interface{}) (*Result, error) {
	e.mu.RLock()
	policies := e.policies
	metrics := e.metrics
	e.mu.RUnlock()

	result := &Result{
		Namespace:   namespace,
		Policies:    len(policies),
		EvaluatedAt: time.Now(),
	}

	if len(policies) == 0 {
		return result, nil
	}

	failures, err := e.query(ctx, policies, namespace, "deny", input)
	if err != nil {
		return nil, err
	}
	violations, err := e.query(ctx, policies, namespace, "violation", input)
	if err != nil {
		return nil, err
	}
	warnings, err := e.query(ctx, policies, namespace, "warn", input)
	if err != nil {
		return nil, err
	}

	for _, msg := range append(failures, violations...) {
		result.Failures = append(result.Failures, Finding{
			Policy:   namespace,
			Severity: SeverityFailure,
			Message:  msg,
		})
	}
	for _, msg := range warnings {
		result.Warnings = append(result.Warnings, Finding{
			Policy:   namespace,
			Severity: SeverityWarning,
			Message:  msg,
		})
	}

	if metrics != nil {
		metrics.RecordPolicyEvaluation(namespace, map[string]int{
			"failure": len(result.Failures),
			"warning": len(result.Warnings),
		})
	}

	e.logger.Debug().
		Str("namespace", namespace).
		Int("failures", len(result.Failures)).
		Int("warnings", len(result.Warnings)).
		Msg("Policy evaluation completed")

	return result, nil
}

// query evaluates a single rule name in the namespace and collects messages.
func (e *Engine) query(ctx context.Context, policies []Policy, namespace, rule string, input interface{}) ([]string, error) {
	// Only query namespaces that actually declare the rule, so a policy set
	// without warn rules does not fail the warn query.
	declared := false
	for i := range policies {
		if policies[i].Package == namespace {
			declared = true
			break
		}
	}
	if !declared {
		return nil, nil
	}

	opts := make([]func(*rego.Rego), 0, len(policies)+2)
	for i := range policies {
		opts = append(opts, rego.Module(policies[i].Path, policies[i].Rego))
	}
	opts = append(opts,
		rego.Query(fmt.Sprintf("data.%s.%s", namespace, rule)),
		rego.Input(input),
	)

	results, err := rego.New(opts...).Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed for %s.%s: %w", namespace, rule, err)
	}

	var messages []string
	for _, r := range results {
		for _, expr := range r.Expressions {
			set, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, item := range set {
				messages = append(messages, findingMessage(item))
			}
		}
	}

	return messages, nil
}

// findingMessage extracts the message from a rule result, which may be a
// plain string or an object with a msg/message field.
func findingMessage(item interface{}) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]interface{}:
		if msg, ok := v["msg"].(string); ok {
			return msg
		}
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return fmt.Sprintf("%v", item)
}
