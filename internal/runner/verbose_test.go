package runner

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"forgetbench/internal/ledger"
	"forgetbench/internal/testutil"
)

// TestVerboseLogging verifies verbose lines reach both writers without color
// when the destination is not a terminal.
func TestVerboseLogging(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)
	var console, logFile bytes.Buffer
	params := testParams(testRecords(), nil, testBackend("alpha", answering("Final Answer: A")))
	params.Verbose = true
	params.VerboseWriter = &console
	params.VerboseLogWriter = &logFile

	if _, err := Execute(ctx, params); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for name, output := range map[string]string{"console": console.String(), "log": logFile.String()} {
		if !strings.Contains(output, "[verbose] Run "+params.RunID) {
			t.Fatalf("%s: expected run header, got %q", name, output)
		}
		if !strings.Contains(output, "alpha/direct record=r1") {
			t.Fatalf("%s: expected unit line, got %q", name, output)
		}
		if strings.Contains(output, "\x1b[") {
			t.Fatalf("%s: expected no ANSI codes", name)
		}
	}
}

// TestVerboseDisabled verifies nothing is written when verbose is off.
func TestVerboseDisabled(t *testing.T) {
	var buf bytes.Buffer
	logVerbose(false, &buf, &buf, true, styleUnit, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

// TestFormatUsage verifies usage totals are rendered sorted.
func TestFormatUsage(t *testing.T) {
	got := formatUsage([]ledger.Entry{
		{Backend: "b", Mode: "direct", Usage: ledger.Usage{PromptTokens: 3, CompletionTokens: 1}},
		{Backend: "a", Mode: "direct", Usage: ledger.Usage{PromptTokens: 5}},
	})
	if got != "a/direct=5 b/direct=4" {
		t.Fatalf("unexpected usage: %q", got)
	}
	if formatUsage(nil) != "none" {
		t.Fatalf("expected none for empty usage")
	}
}
