package prompt

import (
	"fmt"
	"strings"
)

// Mode selects how the answer is elicited.
type Mode string

const (
	ModeDirect         Mode = "direct"
	ModeChainOfThought Mode = "chain_of_thought"
)

// Modes lists every prompting condition in evaluation order.
var Modes = []Mode{ModeDirect, ModeChainOfThought}

// ParseMode resolves a mode name. "cot" is accepted as a short alias.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ModeDirect):
		return ModeDirect, nil
	case string(ModeChainOfThought), "cot", "chain-of-thought":
		return ModeChainOfThought, nil
	default:
		return "", fmt.Errorf("unknown prompt mode %q (expected direct or chain_of_thought)", value)
	}
}

// Short returns the compact label used in tables.
func (mode Mode) Short() string {
	if mode == ModeChainOfThought {
		return "cot"
	}
	return string(mode)
}
