package spec

// Config is the experiment configuration loaded from .forgetbench/config.yml.
type Config struct {
	Version   int                       `yaml:"version"`
	Dataset   string                    `yaml:"dataset"`
	OutputDir string                    `yaml:"output_dir"`
	Modes     []string                  `yaml:"modes"`
	Limit     int                       `yaml:"limit"`
	Analysis  AnalysisConfig            `yaml:"analysis"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Backends  []BackendConfig           `yaml:"backends"`
	Store     StoreConfig               `yaml:"store"`
	Ledger    LedgerConfig              `yaml:"ledger"`
}

// AnalysisConfig tunes the significance layer.
type AnalysisConfig struct {
	Confidence            float64 `yaml:"confidence"`
	McNemarExactThreshold int     `yaml:"mcnemar_exact_threshold"`
}

// ProviderConfig bounds outbound calls to one provider across all its backends.
type ProviderConfig struct {
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// BackendConfig is one model under evaluation.
type BackendConfig struct {
	ID                    string         `yaml:"id"`
	Provider              string         `yaml:"provider"`
	Model                 string         `yaml:"model"`
	BaseURL               string         `yaml:"base_url"`
	APIKeyEnv             string         `yaml:"api_key_env"`
	MaxTokens             int            `yaml:"max_tokens"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	Decoding              DecodingConfig `yaml:"decoding"`
	Retry                 RetryConfig    `yaml:"retry"`
}

// DecodingConfig is fixed to greedy decoding; other values fail validation.
type DecodingConfig struct {
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
}

// RetryConfig is the backoff policy for transient provider failures.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms"`
	MaxDelayMs  int     `yaml:"max_delay_ms"`
	Factor      float64 `yaml:"factor"`
	JitterMs    int     `yaml:"jitter_ms"`
}

// StoreConfig controls the per-run DuckDB results database.
type StoreConfig struct {
	DuckDB bool `yaml:"duckdb"`
}

// LedgerConfig selects where token usage is recorded besides usage.json.
type LedgerConfig struct {
	Mode      string   `yaml:"mode"`
	ClusterID uint64   `yaml:"cluster_id"`
	Addresses []string `yaml:"addresses"`
}
