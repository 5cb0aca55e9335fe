package main

import (
	"io"
	"strings"
	"testing"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/preflight"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Status", statusOK, "completed", false)
	if plain != "  Status:              [OK] completed" {
		t.Fatalf("unexpected plain line %q", plain)
	}
	if got := renderStatusLine("Status", statusWarn, "", false); !strings.HasSuffix(got, "[WARN]") {
		t.Fatalf("expected bare tag, got %q", got)
	}

	colored := renderStatusLine("Status", statusError, "failed", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestGenerationKind(t *testing.T) {
	cases := map[string]statusKind{
		printpal.StatusCompleted:  statusOK,
		printpal.StatusFailed:     statusError,
		printpal.StatusPending:    statusInfo,
		printpal.StatusProcessing: statusInfo,
		"archived":                statusWarn,
	}
	for status, want := range cases {
		if got := generationKind(status); got != want {
			t.Fatalf("generationKind(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestCheckLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/tmp/state"},
		{Name: "API key configured", Passed: false, Detail: "missing"},
	}
	lines := checkLines(results, false)
	if len(lines) != 5 {
		t.Fatalf("expected header, rule, summary and 2 checks, got %d: %q", len(lines), lines)
	}
	if lines[0] != "== printpal "+printpal.Version+" ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[2], "[ERROR] failed: API key configured") {
		t.Fatalf("unexpected summary %q", lines[2])
	}
	if !strings.Contains(lines[3], "[OK] /tmp/state") || !strings.Contains(lines[4], "[ERROR] missing") {
		t.Fatalf("unexpected check lines %q", lines[3:])
	}
}

func TestShouldColorizeNonTerminal(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected no color for non-file writer")
	}
}

func TestHelpers(t *testing.T) {
	if got := tierTitle("super_texture"); got != "Super Texture" {
		t.Fatalf("tierTitle = %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := valueOrDash("  "); got != "-" {
		t.Fatalf("valueOrDash = %q", got)
	}
	if got := formatElapsed(95e9); got != "1m35s" {
		t.Fatalf("formatElapsed = %q", got)
	}
}
