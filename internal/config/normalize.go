package config

import (
	"strings"

	"forgetbench/internal/prompt"
	"forgetbench/internal/provider"
	"forgetbench/internal/spec"
	"forgetbench/internal/stats"
)

// Defaults applied by Normalize.
const (
	DefaultMaxTokens             = 512
	DefaultRequestTimeoutSeconds = 120
	DefaultProviderConcurrency   = 1
	DefaultMaxAttempts           = 5
	DefaultBaseDelayMs           = 500
	DefaultMaxDelayMs            = 30000
	DefaultBackoffFactor         = 2.0
	DefaultJitterMs              = 100
)

// Normalize trims identifiers and fills defaults in place.
func Normalize(cfg *spec.Config) {
	cfg.Dataset = strings.TrimSpace(cfg.Dataset)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if len(cfg.Modes) == 0 {
		for _, mode := range prompt.Modes {
			cfg.Modes = append(cfg.Modes, string(mode))
		}
	}
	for i, mode := range cfg.Modes {
		if parsed, err := prompt.ParseMode(mode); err == nil {
			cfg.Modes[i] = string(parsed)
		}
	}
	if cfg.Analysis.Confidence == 0 {
		cfg.Analysis.Confidence = stats.DefaultConfidence
	}
	if cfg.Analysis.McNemarExactThreshold == 0 {
		cfg.Analysis.McNemarExactThreshold = stats.DefaultExactThreshold
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]spec.ProviderConfig{}
	}
	for i := range cfg.Backends {
		backend := &cfg.Backends[i]
		backend.ID = strings.TrimSpace(backend.ID)
		backend.Provider = strings.ToLower(strings.TrimSpace(backend.Provider))
		backend.Model = strings.TrimSpace(backend.Model)
		backend.APIKeyEnv = strings.TrimSpace(backend.APIKeyEnv)
		if backend.ID == "" {
			backend.ID = backend.Model
		}
		if backend.MaxTokens == 0 {
			backend.MaxTokens = DefaultMaxTokens
		}
		if backend.RequestTimeoutSeconds == 0 {
			backend.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
		}
		if backend.Decoding.Temperature == nil {
			zero := 0.0
			backend.Decoding.Temperature = &zero
		}
		if backend.Decoding.TopP == nil {
			one := 1.0
			backend.Decoding.TopP = &one
		}
		normalizeRetry(&backend.Retry)
		if provider.Supported(backend.Provider) {
			if _, ok := cfg.Providers[backend.Provider]; !ok {
				cfg.Providers[backend.Provider] = spec.ProviderConfig{}
			}
		}
	}
	for name, settings := range cfg.Providers {
		if settings.Concurrency == 0 {
			settings.Concurrency = DefaultProviderConcurrency
		}
		cfg.Providers[name] = settings
	}

	cfg.Ledger.Mode = strings.ToLower(strings.TrimSpace(cfg.Ledger.Mode))
	if cfg.Ledger.Mode == "" {
		cfg.Ledger.Mode = LedgerDisabled
	}
	if cfg.Ledger.Mode == LedgerTigerBeetle && len(cfg.Ledger.Addresses) == 0 {
		cfg.Ledger.Addresses = []string{"3000"}
	}
}

func normalizeRetry(retry *spec.RetryConfig) {
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = DefaultMaxAttempts
	}
	if retry.BaseDelayMs == 0 {
		retry.BaseDelayMs = DefaultBaseDelayMs
	}
	if retry.MaxDelayMs == 0 {
		retry.MaxDelayMs = DefaultMaxDelayMs
	}
	if retry.Factor == 0 {
		retry.Factor = DefaultBackoffFactor
	}
}
