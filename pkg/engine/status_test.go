package engine

import "testing"

func TestProviderStateTerminal(t *testing.T) {
	terminal := []ProviderState{ProviderStateReady, ProviderStateFailed, ProviderStateSkipped, ProviderStateDisabled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	active := []ProviderState{ProviderStatePending, ProviderStateInitializing}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
		if !s.IsActive() {
			t.Errorf("expected %s to be active", s)
		}
	}
}

func TestProviderStateValidate(t *testing.T) {
	if err := ProviderStateReady.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ProviderState("bogus").Validate(); err == nil {
		t.Error("expected error for invalid state")
	}
}

func TestParseFailureThreshold(t *testing.T) {
	tests := []struct {
		input   string
		want    FailureThreshold
		wantErr bool
	}{
		{input: "", want: ThresholdError},
		{input: "error", want: ThresholdError},
		{input: "warning", want: ThresholdWarning},
		{input: "warn", want: ThresholdWarning},
		{input: "none", want: ThresholdNone},
		{input: "ERROR", wantErr: true},
		{input: "silent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFailureThreshold(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
