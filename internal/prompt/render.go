package prompt

import (
	"context"
	"fmt"
	"strings"

	"forgetbench/internal/record"
)

// Render builds the exact prompt text sent for a record under a mode.
// The output is a pure function of its inputs.
func Render(rec record.GoldRecord, mode Mode) (string, error) {
	if mode != ModeDirect && mode != ModeChainOfThought {
		return "", fmt.Errorf("render prompt: unknown mode %q", mode)
	}
	var builder strings.Builder
	if err := Page(rec, mode).Render(context.Background(), &builder); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return builder.String(), nil
}
