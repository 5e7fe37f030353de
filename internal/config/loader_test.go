package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vpnarch/internal/security"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range security.GeminiKeyEnvVars {
		t.Setenv(name, "")
	}
	for _, name := range []string{"VPNARCH_MODEL", "VPNARCH_PROVIDER", "VPNARCH_OLLAMA_URL", "VPNARCH_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Model.Name != DefaultModel {
		t.Errorf("model = %q, want %q", cfg.Model.Name, DefaultModel)
	}
	if cfg.API.Retry.MaxRetries != 3 || cfg.API.Retry.BaseDelay != time.Second || cfg.API.Retry.MaxJitter != time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.API.Retry)
	}
	if cfg.API.GetProvider() != ProviderGemini {
		t.Errorf("provider = %q, want gemini", cfg.API.GetProvider())
	}
}

func TestLoadFrom_ParsesFileAndExpandsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_TEST_KEY", "AIzaSyTest1234567890")

	path := writeConfig(t, `
api:
  api_key: ${MY_TEST_KEY}
  retry:
    max_retries: 5
    base_delay: 250ms
    max_jitter: 100ms
model:
  name: gemini-2.5-pro
ui:
  glamour_style: light
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.APIKey != "AIzaSyTest1234567890" {
		t.Errorf("api key not expanded: %q", cfg.API.APIKey)
	}
	if cfg.API.Retry.MaxRetries != 5 || cfg.API.Retry.BaseDelay != 250*time.Millisecond || cfg.API.Retry.MaxJitter != 100*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.API.Retry)
	}
	if cfg.Model.Name != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
	if cfg.UI.GlamourStyle != "light" || cfg.UI.CodeStyle != "monokai" {
		t.Errorf("unexpected ui config: %+v", cfg.UI)
	}
	if cfg.API.Retry.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("zero http timeout not normalized: %v", cfg.API.Retry.HTTPTimeout)
	}
	if cfg.Path != path {
		t.Errorf("path = %q, want %q", cfg.Path, path)
	}
}

func TestLoadFrom_ClampsRetryBudget(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  retry:
    max_retries: 500
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.Retry.MaxRetries != MaxRetriesLimit {
		t.Errorf("max_retries = %d, want %d", cfg.API.Retry.MaxRetries, MaxRetriesLimit)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api: [unterminated")

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VPNARCH_PROVIDER", "Ollama")
	t.Setenv("VPNARCH_OLLAMA_URL", "http://gpu-box:11434")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.GetProvider() != ProviderOllama {
		t.Errorf("provider = %q, want ollama", cfg.API.Provider)
	}
	if cfg.Model.Name != DefaultOllamaModel {
		t.Errorf("gemini model not swapped for ollama default: %q", cfg.Model.Name)
	}
	if cfg.API.OllamaBaseURL != "http://gpu-box:11434" {
		t.Errorf("ollama url = %q", cfg.API.OllamaBaseURL)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAuth) {
		t.Fatalf("expected ErrMissingAuth, got %v", err)
	}

	t.Setenv("API_KEY", "AIzaSyEnv1234567890")
	if err := cfg.Validate(); err != nil {
		t.Errorf("key from environment should validate: %v", err)
	}

	t.Setenv("API_KEY", "")
	cfg.API.Provider = ProviderOllama
	if err := cfg.Validate(); err != nil {
		t.Errorf("ollama needs no key: %v", err)
	}

	cfg.API.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.APIKey = "AIzaSySaved1234567890"
	cfg.API.Retry.BaseDelay = 2 * time.Second
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.API.APIKey != cfg.API.APIKey || loaded.API.Retry.BaseDelay != 2*time.Second {
		t.Errorf("round trip mismatch: %+v", loaded.API)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "model:\n  name: gemini-2.5-flash\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	if err := Watch(ctx, path, func(cfg *Config) { reloaded <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("model:\n  name: gemini-2.5-pro\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Model.Name != "gemini-2.5-pro" {
			t.Errorf("reloaded model = %q", cfg.Model.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not reported")
	}
}
