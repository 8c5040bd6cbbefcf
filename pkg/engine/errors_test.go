package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProviderErrorMessage(t *testing.T) {
	err := NewPermanentError("invalid configuration", errors.New("bad field")).
		WithCode(ErrCodeValidation).
		WithProvider("terraform").
		WithOperation("init")

	msg := err.Error()
	for _, want := range []string{"permanent", "invalid configuration", "terraform", "init", "bad field"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestProviderErrorClassification(t *testing.T) {
	transient := NewTransientError("timeout", nil)
	permanent := NewPermanentError("bad config", nil)

	if !IsTransient(transient) {
		t.Error("expected transient classification")
	}
	if IsTransient(permanent) {
		t.Error("permanent error misclassified as transient")
	}
	if !IsPermanent(permanent) {
		t.Error("expected permanent classification")
	}

	// Classification survives wrapping.
	wrapped := fmt.Errorf("run failed: %w", transient)
	if !IsTransient(wrapped) {
		t.Error("classification should survive %w wrapping")
	}

	if IsTransient(errors.New("plain")) {
		t.Error("plain errors have no classification")
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := NewConflictError("cache busy", inner)

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the wrapped error")
	}

	var perr *ProviderError
	if !errors.As(fmt.Errorf("outer: %w", err), &perr) {
		t.Fatal("expected errors.As to extract ProviderError")
	}
	if perr.Class != ErrorClassConflict {
		t.Errorf("expected conflict class, got %s", perr.Class)
	}
}
