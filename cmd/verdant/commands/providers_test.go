package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verdant-dev/verdant/pkg/engine"
)

func TestPrintStatuses(t *testing.T) {
	cachedAt := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	statuses := []*engine.ProviderStatus{
		{
			Provider:    "exec",
			Environment: "dev",
			ConfigHash:  "0123456789abcdef0123456789abcdef",
			Ready:       true,
			CachedAt:    cachedAt,
		},
		{
			Provider:    "terraform",
			Environment: "dev",
			ConfigHash:  "feedface",
			Ready:       false,
			CachedAt:    cachedAt,
		},
	}

	var buf bytes.Buffer
	if err := printStatuses(&buf, statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "PROVIDER") {
		t.Errorf("expected header row, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "exec") || !strings.Contains(lines[1], "0123456789ab") {
		t.Errorf("expected truncated hash for exec, got %q", lines[1])
	}
	if strings.Contains(lines[1], "0123456789abc") {
		t.Errorf("expected the hash to be truncated to 12 characters, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "terraform") || !strings.Contains(lines[2], "feedface") {
		t.Errorf("expected short hashes to pass through, got %q", lines[2])
	}
}

func TestPrintStatusesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printStatuses(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
		t.Errorf("expected only the header, got %q", buf.String())
	}
}
