package security

import (
	"fmt"
	"os"
	"strings"
)

// KeySource represents where an API key was loaded from
type KeySource string

const (
	// KeySourceEnvironment indicates the key was loaded from environment variables
	KeySourceEnvironment KeySource = "environment"
	// KeySourceConfig indicates the key was loaded from the config file
	KeySourceConfig KeySource = "config"
	// KeySourceNotSet indicates no key was found
	KeySourceNotSet KeySource = "not_set"
)

// GeminiKeyEnvVars lists the environment variables consulted for the Gemini
// key, highest priority first.
var GeminiKeyEnvVars = []string{
	"VPNARCH_API_KEY",
	"API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
}

// LoadedKey represents a loaded API key with metadata
type LoadedKey struct {
	Value  string
	Source KeySource
	EnvVar string // set when Source is KeySourceEnvironment
}

// String returns a safe representation that never exposes the key.
func (k *LoadedKey) String() string {
	if !k.IsSet() {
		return "LoadedKey{Source: not_set}"
	}
	return fmt.Sprintf("LoadedKey{Source: %s, Value: %s}", k.Source, MaskKey(k.Value))
}

// IsSet returns true if the key has a value
func (k *LoadedKey) IsSet() bool {
	return k != nil && k.Value != ""
}

// GetAPIKey loads an API key, environment variables first and the config
// file value as fallback, so deployments can keep keys out of config files.
func GetAPIKey(envVarNames []string, configValue string) *LoadedKey {
	for _, envVar := range envVarNames {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return &LoadedKey{Value: value, Source: KeySourceEnvironment, EnvVar: envVar}
		}
	}

	if configValue = strings.TrimSpace(configValue); configValue != "" {
		return &LoadedKey{Value: configValue, Source: KeySourceConfig}
	}

	return &LoadedKey{Source: KeySourceNotSet}
}

// GetGeminiKey loads the Gemini API key from GeminiKeyEnvVars or the
// api.api_key config value.
func GetGeminiKey(configKey string) *LoadedKey {
	return GetAPIKey(GeminiKeyEnvVars, configKey)
}

// MaskKey masks an API key for safe logging/display.
//
// Example: "sk-1234567890abcdef" -> "sk-1***********cdef"
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// ValidateKeyFormat performs a basic sanity check on the key format.
func ValidateKeyFormat(key string) error {
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if len(key) < 10 {
		return fmt.Errorf("API key too short (expected at least 10 characters, got %d)", len(key))
	}

	lowerKey := strings.ToLower(key)
	for _, placeholder := range []string{"your-api-key", "your_api_key", "<insert-key>", "changeme"} {
		if strings.Contains(lowerKey, placeholder) {
			return fmt.Errorf("API key appears to be a placeholder: %s", placeholder)
		}
	}
	return nil
}
