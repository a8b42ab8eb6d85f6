package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// uiMode is the resolved console presentation for a run.
type uiMode int

const (
	uiPlain uiMode = iota
	uiLive
)

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

// resolveUIMode maps --ui to a presentation. Verbose output always wins over
// the live UI; a warning is returned when live was requested but unavailable.
func resolveUIMode(flagValue string, verbose bool, stdout io.Writer) (uiMode, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(flagValue))
	switch normalized {
	case "", "auto":
		if verbose {
			return uiPlain, "", nil
		}
		if isTerminal(stdout) {
			return uiLive, "", nil
		}
		return uiPlain, "", nil
	case "live":
		if verbose {
			return uiPlain, "Live UI is disabled with --verbose.", nil
		}
		if !isTerminal(stdout) {
			return uiPlain, "Live UI requested but stdout is not a TTY; falling back to plain output.", nil
		}
		return uiLive, "", nil
	case "plain":
		return uiPlain, "", nil
	default:
		return uiPlain, "", fmt.Errorf("invalid ui mode %q (expected auto|live|plain)", flagValue)
	}
}

// defaultIsTerminal inspects stdout for TTY support.
func defaultIsTerminal(stdout io.Writer) bool {
	if file, ok := stdout.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
