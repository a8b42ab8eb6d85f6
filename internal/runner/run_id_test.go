package runner

import (
	"bytes"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// TestFormatRunID verifies the timestamp is rendered in UTC.
func TestFormatRunID(t *testing.T) {
	local := time.FixedZone("CET", 3600)
	got := FormatRunID(time.Date(2024, 1, 2, 4, 4, 5, 0, local), "deadbeef")
	if got != "20240102T030405Z-deadbeef" {
		t.Fatalf("unexpected run id: %q", got)
	}
}

// TestNewRunIDWithRand verifies the suffix comes from the reader and a
// short read is an error.
func TestNewRunIDWithRand(t *testing.T) {
	timestamp := time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)
	got, err := NewRunIDWithRand(timestamp, bytes.NewReader([]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "20240607T080910Z-001122334455" {
		t.Fatalf("unexpected run id: %q", got)
	}
	if _, err := NewRunIDWithRand(timestamp, bytes.NewReader([]byte{0x01})); err == nil {
		t.Fatalf("expected error for short suffix")
	}
	if _, err := NewRunIDWithRand(timestamp, nil); err == nil {
		t.Fatalf("expected error for nil reader")
	}
}

// TestRunIDsSortByStartAndNameOutputDirs verifies run directories list in
// start order and stay inside the output root.
func TestRunIDsSortByStartAndNameOutputDirs(t *testing.T) {
	start := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	ids := []string{
		FormatRunID(start.Add(2*time.Second), "000000000000"),
		FormatRunID(start, "ffffffffffff"),
		FormatRunID(start.Add(time.Hour), "aaaaaaaaaaaa"),
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	if sorted[0] != ids[1] || sorted[1] != ids[0] || sorted[2] != ids[2] {
		t.Fatalf("run ids do not sort by start time: %v", sorted)
	}
	id, err := NewRunIDAt(start)
	if err != nil {
		t.Fatalf("new run id: %v", err)
	}
	paths, err := NewOutputPaths("results", id)
	if err != nil {
		t.Fatalf("output paths for %q: %v", id, err)
	}
	if paths.RunDir() != filepath.Join("results", id) {
		t.Fatalf("unexpected run dir %s", paths.RunDir())
	}
}
