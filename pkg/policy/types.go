package policy

import "time"

// Severity classifies a policy finding.
type Severity string

const (
	// SeverityFailure is a finding from a deny or violation rule.
	SeverityFailure Severity = "failure"

	// SeverityWarning is a finding from a warn rule.
	SeverityWarning Severity = "warning"
)

// Policy is a loaded Rego policy module.
type Policy struct {
	// Name is the policy name, derived from the file path.
	Name string `json:"name"`

	// Path is the source file path.
	Path string `json:"path"`

	// Rego is the policy source.
	Rego string `json:"rego"`

	// Package is the Rego package the module declares.
	Package string `json:"package"`

	// LoadedAt is when the policy was read.
	LoadedAt time.Time `json:"loaded_at"`
}

// Finding is a single matched policy rule result.
type Finding struct {
	// Policy is the name of the policy the finding came from.
	Policy string `json:"policy"`

	// Severity is the finding severity.
	Severity Severity `json:"severity"`

	// Message is the message the rule produced.
	Message string `json:"message"`
}

// Result is the outcome of evaluating a namespace against an input.
type Result struct {
	// Namespace is the evaluated package namespace.
	Namespace string `json:"namespace"`

	// Failures are matched deny/violation rules.
	Failures []Finding `json:"failures,omitempty"`

	// Warnings are matched warn rules.
	Warnings []Finding `json:"warnings,omitempty"`

	// Policies counts the policy modules consulted.
	Policies int `json:"policies"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Failed reports whether any failure findings matched.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}
