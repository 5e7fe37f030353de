package config

import "time"

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Default configuration values.
const (
	DefaultModel         = "gemini-2.5-flash"
	DefaultOllamaModel   = "llama3.1"
	DefaultOllamaBaseURL = "http://localhost:11434"

	// Retry settings: waits of 2s, 4s, 8s plus up to 1s jitter.
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxJitter  = 1 * time.Second
	MaxRetriesLimit   = 10

	// One generation makes up to four attempts
	DefaultRateLimitBurst = 4

	DefaultHTTPTimeout       = 120 * time.Second
	DefaultStreamIdleTimeout = 60 * time.Second

	DefaultHistoryEntries = 200

	// Debounce for config file change events
	DefaultWatchDebounce = 250 * time.Millisecond
)
