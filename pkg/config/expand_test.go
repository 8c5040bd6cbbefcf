package config

import (
	"reflect"
	"testing"
)

func TestExpandVars(t *testing.T) {
	vars := map[string]string{
		"var.region":       "us-east-1",
		"environment.name": "dev",
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "no template", input: "plain", want: "plain"},
		{name: "single var", input: "${var.region}", want: "us-east-1"},
		{name: "embedded", input: "bucket-${var.region}-${environment.name}", want: "bucket-us-east-1-dev"},
		{name: "unknown key", input: "${var.missing}", wantErr: true},
		{name: "lone dollar", input: "cost is $5", want: "cost is $5"},
		{name: "unterminated", input: "${var.region", want: "${var.region"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandVars(tt.input, vars)
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
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExpandConfigRecursive(t *testing.T) {
	vars := map[string]string{"var.name": "acme"}

	raw := map[string]interface{}{
		"project": "${var.name}",
		"count":   3,
		"nested": map[string]interface{}{
			"label": "app-${var.name}",
		},
		"list": []interface{}{"${var.name}", 42},
	}

	out, err := ExpandConfig(raw, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]interface{}{
		"project": "acme",
		"count":   3,
		"nested": map[string]interface{}{
			"label": "app-acme",
		},
		"list": []interface{}{"acme", 42},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("expected %v, got %v", want, out)
	}
}

func TestExpandConfigUnknownKeyNamesField(t *testing.T) {
	_, err := ExpandConfig(map[string]interface{}{"field": "${var.nope}"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExpandConfigNil(t *testing.T) {
	out, err := ExpandConfig(nil, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil, got %v", out)
	}
}
