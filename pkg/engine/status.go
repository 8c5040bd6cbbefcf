package engine

import (
	"encoding/json"
	"fmt"
)

// ProviderState represents the lifecycle state of a provider during a run.
type ProviderState string

const (
	// ProviderStateUnknown indicates the provider state is not yet known.
	ProviderStateUnknown ProviderState = "unknown"

	// ProviderStatePending indicates the provider is waiting on dependencies.
	ProviderStatePending ProviderState = "pending"

	// ProviderStateInitializing indicates the provider is initializing.
	ProviderStateInitializing ProviderState = "initializing"

	// ProviderStateReady indicates the provider initialized successfully.
	ProviderStateReady ProviderState = "ready"

	// ProviderStateFailed indicates the provider failed to initialize.
	ProviderStateFailed ProviderState = "failed"

	// ProviderStateSkipped indicates the provider was skipped because a
	// dependency failed.
	ProviderStateSkipped ProviderState = "skipped"

	// ProviderStateDisabled indicates the provider is not active in the
	// invocation's environment.
	ProviderStateDisabled ProviderState = "disabled"
)

// IsTerminal returns true if the state represents a final outcome.
func (s ProviderState) IsTerminal() bool {
	return s == ProviderStateReady || s == ProviderStateFailed ||
		s == ProviderStateSkipped || s == ProviderStateDisabled
}

// IsActive returns true if the provider is still progressing.
func (s ProviderState) IsActive() bool {
	return s == ProviderStatePending || s == ProviderStateInitializing
}

// Validate checks if the provider state is valid.
func (s ProviderState) Validate() error {
	switch s {
	case ProviderStateUnknown, ProviderStatePending, ProviderStateInitializing,
		ProviderStateReady, ProviderStateFailed, ProviderStateSkipped, ProviderStateDisabled:
		return nil
	default:
		return fmt.Errorf("invalid provider state: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s ProviderState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *ProviderState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ProviderState(str)
	return s.Validate()
}

// FailureThreshold governs whether policy violations fail a verification run.
type FailureThreshold string

const (
	// ThresholdError fails the run on matched violations.
	ThresholdError FailureThreshold = "error"

	// ThresholdWarning logs matched violations without failing the run.
	ThresholdWarning FailureThreshold = "warning"

	// ThresholdNone ignores matched violations entirely.
	ThresholdNone FailureThreshold = "none"
)

// ParseFailureThreshold parses a threshold value, accepting the documented
// "warn" alias for "warning". An empty value defaults to error.
func ParseFailureThreshold(value string) (FailureThreshold, error) {
	switch value {
	case "", "error":
		return ThresholdError, nil
	case "warning", "warn":
		return ThresholdWarning, nil
	case "none":
		return ThresholdNone, nil
	default:
		return "", fmt.Errorf("invalid testFailureThreshold %q (expected error, warning or none)", value)
	}
}
