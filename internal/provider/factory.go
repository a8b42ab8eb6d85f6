package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Supported provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Names lists the supported providers.
var Names = []string{ProviderOpenAI, ProviderOpenRouter, ProviderAnthropic}

// Config selects and configures one backend variant.
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

// LookupFunc resolves environment variables.
type LookupFunc func(string) string

// New builds the client for cfg. A missing credential is a FatalError so the
// backend is aborted before any call is made. client may be nil, in which
// case an http.Client with cfg.Timeout is used.
func New(cfg Config, lookup LookupFunc, client HTTPDoer) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	apiKey := ""
	if lookup != nil && cfg.APIKeyEnv != "" {
		apiKey = strings.TrimSpace(lookup(cfg.APIKeyEnv))
	}
	if apiKey == "" {
		return nil, Fatalf(name, "credential %s is not set", cfg.APIKeyEnv)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch name {
	case ProviderOpenAI:
		return NewOpenAI(cfg.Model, apiKey, cfg.BaseURL, client)
	case ProviderOpenRouter:
		return NewOpenRouter(cfg.Model, apiKey, cfg.BaseURL, client)
	case ProviderAnthropic:
		return NewAnthropic(cfg.Model, apiKey, cfg.BaseURL, client)
	default:
		return nil, Fatalf(name, "unsupported provider %q", cfg.Provider)
	}
}

// Supported reports whether name is a known provider.
func Supported(name string) bool {
	for _, candidate := range Names {
		if candidate == name {
			return true
		}
	}
	return false
}

// String describes the configuration without credentials.
func (cfg Config) String() string {
	return fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model)
}
