package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Model   ModelConfig   `yaml:"model"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`

	// Path the configuration was loaded from (empty if defaults only).
	Path string `yaml:"-"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds backend-related settings.
type APIConfig struct {
	// Gemini API key. Environment variables take precedence, see security.GetGeminiKey.
	APIKey string `yaml:"api_key,omitempty"`

	// Provider: gemini (default) or ollama.
	Provider string `yaml:"provider"`

	// Ollama server URL (default: http://localhost:11434)
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`

	// Retry configuration for generation calls
	Retry RetryConfig `yaml:"retry"`

	// Client-side request limit, counting every attempt
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// GetProvider returns the configured provider, defaulting to gemini.
func (c *APIConfig) GetProvider() string {
	if c.Provider == "" {
		return ProviderGemini
	}
	return c.Provider
}

// RetryConfig holds retry settings for generation calls.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`         // Retries after the first attempt (default: 3)
	BaseDelay         time.Duration `yaml:"base_delay"`          // Backoff unit, doubled per attempt (default: 1s)
	MaxJitter         time.Duration `yaml:"max_jitter"`          // Upper bound of random jitter (default: 1s)
	HTTPTimeout       time.Duration `yaml:"http_timeout"`        // Timeout for establishing a stream (default: 120s)
	StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout"` // Fail a stream silent for this long (default: 60s)
}

// RateLimitConfig holds client-side request limiting settings.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 disables limiting (default)
	BurstSize         int `yaml:"burst_size"`          // Requests allowed back to back (default: 4)
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	Name string `yaml:"name"`
}

// UIConfig holds UI-related settings.
type UIConfig struct {
	MarkdownRendering bool   `yaml:"markdown_rendering"` // Render the guide with glamour
	GlamourStyle      string `yaml:"glamour_style"`      // dark, light, dracula, notty, ...
	CodeStyle         string `yaml:"code_style"`         // chroma style for streamed code blocks
	WatchConfig       bool   `yaml:"watch_config"`       // Reload config edits while the wizard runs
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// HistoryConfig holds generation history settings.
type HistoryConfig struct {
	Enabled    bool `yaml:"enabled"`     // Record finished generations next to the config file
	MaxEntries int  `yaml:"max_entries"` // Oldest entries are dropped beyond this (default: 200)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider:      ProviderGemini,
			OllamaBaseURL: DefaultOllamaBaseURL,
			Retry: RetryConfig{
				MaxRetries:        DefaultMaxRetries,
				BaseDelay:         DefaultBaseDelay,
				MaxJitter:         DefaultMaxJitter,
				HTTPTimeout:       DefaultHTTPTimeout,
				StreamIdleTimeout: DefaultStreamIdleTimeout,
			},
			RateLimit: RateLimitConfig{
				BurstSize: DefaultRateLimitBurst,
			},
		},
		Model: ModelConfig{
			Name: DefaultModel,
		},
		UI: UIConfig{
			MarkdownRendering: true,
			GlamourStyle:      "dark",
			CodeStyle:         "monokai",
			WatchConfig:       true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: DefaultHistoryEntries,
		},
	}
}
