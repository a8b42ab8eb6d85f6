package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
)

// ScaffoldConfig renders a starter config covering the original study's
// backends: two OpenAI models and two models routed through OpenRouter.
func ScaffoldConfig(dataset, outputDir string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var builder strings.Builder
		fmt.Fprintf(&builder, "version: 1\ndataset: %q\noutput_dir: %q\n", dataset, outputDir)
		builder.WriteString("modes: [direct, chain_of_thought]\n")
		builder.WriteString("limit: 0\n\n")
		builder.WriteString("analysis:\n  confidence: 0.95\n  mcnemar_exact_threshold: 25\n\n")
		builder.WriteString("providers:\n")
		builder.WriteString("  openai:\n    concurrency: 4\n    requests_per_second: 3\n")
		builder.WriteString("  openrouter:\n    concurrency: 4\n    requests_per_second: 3\n\n")
		builder.WriteString("backends:\n")
		for _, backend := range []struct{ id, provider, model, keyEnv string }{
			{"gpt-4.1", "openai", "gpt-4.1", "OPENAI_API_KEY"},
			{"gpt-4o-mini", "openai", "gpt-4o-mini", "OPENAI_API_KEY"},
			{"claude-3.5-sonnet", "openrouter", "anthropic/claude-3.5-sonnet", "OPENROUTER_API_KEY"},
			{"mistral-large-2407", "openrouter", "mistralai/mistral-large-2407", "OPENROUTER_API_KEY"},
		} {
			fmt.Fprintf(&builder, "  - id: %s\n    provider: %s\n    model: %s\n    api_key_env: %s\n", backend.id, backend.provider, backend.model, backend.keyEnv)
			fmt.Fprintf(&builder, "    max_tokens: %d\n    request_timeout_seconds: %d\n", DefaultMaxTokens, DefaultRequestTimeoutSeconds)
			builder.WriteString("    decoding: {temperature: 0, top_p: 1}\n")
			fmt.Fprintf(&builder, "    retry: {max_attempts: %d, base_delay_ms: %d, max_delay_ms: %d, factor: %g, jitter_ms: %d}\n",
				DefaultMaxAttempts, DefaultBaseDelayMs, DefaultMaxDelayMs, DefaultBackoffFactor, DefaultJitterMs)
		}
		builder.WriteString("\nstore:\n  duckdb: true\n\nledger:\n  mode: disabled\n")
		_, err := io.WriteString(w, builder.String())
		return err
	})
}

// Scaffold writes a starter config to path, refusing to overwrite.
func Scaffold(path, dataset, outputDir string) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", path)
		}
		return fmt.Errorf("config file already exists at %q", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if dataset == "" {
		dataset = "data/conditional_forgetting.jsonl"
	}
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	var builder strings.Builder
	if err := ScaffoldConfig(dataset, outputDir).Render(context.Background(), &builder); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
