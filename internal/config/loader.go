package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"vpnarch/internal/fileutil"
	"vpnarch/internal/security"

	"gopkg.in/yaml.v3"
)

// Error types for configuration validation.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

// ErrMissingAuth is returned by Validate when the gemini provider has no key.
const ErrMissingAuth = ConfigError("no Gemini API key configured")

// Load loads configuration from the default path and environment variables.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads configuration from path (optional) and environment variables.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			// Config file is optional, don't fail if it doesn't exist
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
		cfg.Path = path
	}

	loadFromEnv(cfg)
	normalize(cfg)

	return cfg, nil
}

// ConfigDir returns the directory holding config.yaml and the log file.
func ConfigDir() string {
	return filepath.Dir(ConfigPath())
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vpnarch", "config.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == "darwin" {
		appSupport := filepath.Join(homeDir, "Library", "Application Support", "vpnarch", "config.yaml")
		dotConfig := filepath.Join(homeDir, ".config", "vpnarch", "config.yaml")
		if _, err := os.Stat(dotConfig); err == nil {
			return dotConfig
		}
		return appSupport
	}

	return filepath.Join(homeDir, ".config", "vpnarch", "config.yaml")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies environment overrides. The API key itself is resolved
// later by security.GetGeminiKey so its source can be reported.
func loadFromEnv(cfg *Config) {
	if model := os.Getenv("VPNARCH_MODEL"); model != "" {
		cfg.Model.Name = model
	}
	if provider := os.Getenv("VPNARCH_PROVIDER"); provider != "" {
		cfg.API.Provider = provider
	}
	if url := os.Getenv("VPNARCH_OLLAMA_URL"); url != "" {
		cfg.API.OllamaBaseURL = url
	}
	if level := os.Getenv("VPNARCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// normalize fills zero values left by a partial config file.
func normalize(cfg *Config) {
	cfg.API.Provider = strings.ToLower(strings.TrimSpace(cfg.API.Provider))
	if cfg.API.Provider == "" {
		cfg.API.Provider = ProviderGemini
	}

	r := &cfg.API.Retry
	r.MaxRetries = min(max(r.MaxRetries, 0), MaxRetriesLimit)
	if r.BaseDelay <= 0 {
		r.BaseDelay = DefaultBaseDelay
	}
	if r.MaxJitter < 0 {
		r.MaxJitter = 0
	}
	if r.HTTPTimeout <= 0 {
		r.HTTPTimeout = DefaultHTTPTimeout
	}
	if r.StreamIdleTimeout <= 0 {
		r.StreamIdleTimeout = DefaultStreamIdleTimeout
	}

	if cfg.API.RateLimit.RequestsPerMinute < 0 {
		cfg.API.RateLimit.RequestsPerMinute = 0
	}
	if cfg.API.RateLimit.BurstSize < 1 {
		cfg.API.RateLimit.BurstSize = DefaultRateLimitBurst
	}

	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = DefaultHistoryEntries
	}

	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModel
	}
	if cfg.API.Provider == ProviderOllama && strings.HasPrefix(cfg.Model.Name, "gemini") {
		cfg.Model.Name = DefaultOllamaModel
	}
	if cfg.API.OllamaBaseURL == "" {
		cfg.API.OllamaBaseURL = DefaultOllamaBaseURL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.API.GetProvider() {
	case ProviderGemini:
		if !security.GetGeminiKey(c.API.APIKey).IsSet() {
			return ErrMissingAuth
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q (expected %s or %s)", c.API.Provider, ProviderGemini, ProviderOllama)
	}
	return nil
}

// Save writes the configuration to path with owner-only permissions since
// it may contain the API key.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
