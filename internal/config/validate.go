package config

import (
	"fmt"
	"sort"
	"strings"

	"forgetbench/internal/prompt"
	"forgetbench/internal/provider"
	"forgetbench/internal/spec"
)

// Ledger modes.
const (
	LedgerDisabled    = "disabled"
	LedgerTigerBeetle = "tigerbeetle"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// Validate checks a normalized config for correctness.
func Validate(cfg *spec.Config) error {
	var issues []Issue
	add := func(field, message string) {
		issues = append(issues, Issue{Field: field, Message: message})
	}

	if cfg.Version == 0 {
		add("version", "is required")
	} else if cfg.Version != 1 {
		add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}
	if cfg.Dataset == "" {
		add("dataset", "is required")
	}
	if cfg.Limit < 0 {
		add("limit", "must be >= 0")
	}

	seenModes := map[string]struct{}{}
	for i, mode := range cfg.Modes {
		field := fmt.Sprintf("modes[%d]", i)
		if _, err := prompt.ParseMode(mode); err != nil {
			add(field, fmt.Sprintf("unsupported mode %q", mode))
			continue
		}
		if _, dup := seenModes[mode]; dup {
			add(field, fmt.Sprintf("duplicate mode %q", mode))
		}
		seenModes[mode] = struct{}{}
	}

	if c := cfg.Analysis.Confidence; !(c > 0 && c < 1) {
		add("analysis.confidence", "must be between 0 and 1 (exclusive)")
	}
	if cfg.Analysis.McNemarExactThreshold < 0 {
		add("analysis.mcnemar_exact_threshold", "must be >= 0")
	}

	validateBackends(cfg, add)
	validateProviders(cfg, add)
	validateLedger(cfg, add)

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func validateBackends(cfg *spec.Config, add func(string, string)) {
	if len(cfg.Backends) == 0 {
		add("backends", "at least one backend is required")
	}
	seen := map[string]struct{}{}
	for i, backend := range cfg.Backends {
		prefix := fmt.Sprintf("backends[%d]", i)
		if backend.ID == "" {
			add(prefix+".id", "is required")
		} else if _, dup := seen[backend.ID]; dup {
			add(prefix+".id", fmt.Sprintf("duplicate backend id %q", backend.ID))
		} else {
			seen[backend.ID] = struct{}{}
		}
		if backend.Provider == "" {
			add(prefix+".provider", "is required")
		} else if !provider.Supported(backend.Provider) {
			add(prefix+".provider", fmt.Sprintf("unsupported provider %q (expected one of %s)", backend.Provider, strings.Join(provider.Names, ", ")))
		}
		if backend.Model == "" {
			add(prefix+".model", "is required")
		}
		if backend.APIKeyEnv == "" {
			add(prefix+".api_key_env", "is required")
		}
		if backend.MaxTokens < 0 {
			add(prefix+".max_tokens", "must be > 0")
		}
		if backend.RequestTimeoutSeconds < 0 {
			add(prefix+".request_timeout_seconds", "must be > 0")
		}
		if t := backend.Decoding.Temperature; t != nil && *t != 0 {
			add(prefix+".decoding.temperature", "must be 0 (greedy decoding)")
		}
		if p := backend.Decoding.TopP; p != nil && *p != 1 {
			add(prefix+".decoding.top_p", "must be 1 (greedy decoding)")
		}
		retry := backend.Retry
		if retry.MaxAttempts < 1 {
			add(prefix+".retry.max_attempts", "must be >= 1")
		}
		if retry.BaseDelayMs < 0 {
			add(prefix+".retry.base_delay_ms", "must be >= 0")
		}
		if retry.MaxDelayMs < retry.BaseDelayMs {
			add(prefix+".retry.max_delay_ms", "must be >= base_delay_ms")
		}
		if retry.Factor < 1 {
			add(prefix+".retry.factor", "must be >= 1")
		}
		if retry.JitterMs < 0 {
			add(prefix+".retry.jitter_ms", "must be >= 0")
		}
	}
}

func validateProviders(cfg *spec.Config, add func(string, string)) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		settings := cfg.Providers[name]
		prefix := "providers." + name
		if !provider.Supported(name) {
			add(prefix, fmt.Sprintf("unsupported provider %q", name))
		}
		if settings.Concurrency < 1 {
			add(prefix+".concurrency", "must be >= 1")
		}
		if settings.RequestsPerSecond < 0 {
			add(prefix+".requests_per_second", "must be >= 0")
		}
	}
}

func validateLedger(cfg *spec.Config, add func(string, string)) {
	switch cfg.Ledger.Mode {
	case LedgerDisabled:
	case LedgerTigerBeetle:
		for i, address := range cfg.Ledger.Addresses {
			if strings.TrimSpace(address) == "" {
				add(fmt.Sprintf("ledger.addresses[%d]", i), "must not be empty")
			}
		}
	default:
		add("ledger.mode", fmt.Sprintf("unsupported ledger mode %q", cfg.Ledger.Mode))
	}
}
