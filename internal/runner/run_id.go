package runner

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// runIDLayout is fixed-width UTC so run directories under output_dir sort
// by start time.
const runIDLayout = "20060102T150405Z"

const runIDSuffixBytes = 6

// NewRunID returns "<UTC start>-<12 hex chars>", the name of the run's
// output directory.
func NewRunID() (string, error) {
	return NewRunIDAt(time.Now())
}

// NewRunIDAt is NewRunID for a run started at now.
func NewRunIDAt(now time.Time) (string, error) {
	return NewRunIDWithRand(now, rand.Reader)
}

func NewRunIDWithRand(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("random reader is nil")
	}
	buf := make([]byte, runIDSuffixBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read run id suffix: %w", err)
	}
	return FormatRunID(now, hex.EncodeToString(buf)), nil
}

func FormatRunID(now time.Time, suffix string) string {
	return now.UTC().Format(runIDLayout) + "-" + suffix
}
