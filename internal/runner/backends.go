package runner

import (
	"context"
	"fmt"
	"time"

	"forgetbench/internal/provider"
	"forgetbench/internal/retry"
	"forgetbench/internal/spec"
)

// BackendsFromConfig builds the backends named in only (all when empty) in
// configuration order. A backend whose client cannot be constructed, for
// example because its credential is unset, still runs: its client fails
// every call with the construction error so only that backend is aborted.
func BackendsFromConfig(cfg spec.Config, only []string, lookup provider.LookupFunc, doer provider.HTTPDoer) ([]Backend, error) {
	selected := map[string]bool{}
	for _, id := range only {
		selected[id] = true
	}
	var backends []Backend
	for _, backendConfig := range cfg.Backends {
		if len(selected) > 0 && !selected[backendConfig.ID] {
			continue
		}
		delete(selected, backendConfig.ID)
		client, err := provider.New(provider.Config{
			Provider:  backendConfig.Provider,
			Model:     backendConfig.Model,
			BaseURL:   backendConfig.BaseURL,
			APIKeyEnv: backendConfig.APIKeyEnv,
			Timeout:   time.Duration(backendConfig.RequestTimeoutSeconds) * time.Second,
		}, lookup, doer)
		if err != nil {
			client = failingClient(err)
		}
		backends = append(backends, Backend{
			ID:       backendConfig.ID,
			Provider: backendConfig.Provider,
			Model:    backendConfig.Model,
			Client:   client,
			Decoding: decodingFor(backendConfig),
			Retry:    policyFor(backendConfig.Retry),
		})
	}
	for id := range selected {
		return nil, fmt.Errorf("unknown backend %q", id)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no backends selected")
	}
	return backends, nil
}

func failingClient(err error) provider.Client {
	return provider.ClientFunc(func(context.Context, provider.Request) (provider.Completion, error) {
		return provider.Completion{}, err
	})
}

func decodingFor(cfg spec.BackendConfig) provider.Decoding {
	decoding := provider.Greedy(cfg.MaxTokens)
	if cfg.Decoding.Temperature != nil {
		decoding.Temperature = *cfg.Decoding.Temperature
	}
	if cfg.Decoding.TopP != nil {
		decoding.TopP = *cfg.Decoding.TopP
	}
	return decoding
}

func policyFor(cfg spec.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelayMs > 0 {
		policy.BaseDelay = time.Duration(cfg.BaseDelayMs) * time.Millisecond
	}
	if cfg.MaxDelayMs > 0 {
		policy.MaxDelay = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	if cfg.Factor > 0 {
		policy.Factor = cfg.Factor
	}
	if cfg.JitterMs >= 0 {
		policy.Jitter = time.Duration(cfg.JitterMs) * time.Millisecond
	}
	return policy
}
