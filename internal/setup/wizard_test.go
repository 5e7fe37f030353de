package setup

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vpnarch/internal/config"
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

func acceptAnyKey(ctx context.Context, key string) error { return nil }

func TestWizard_GeminiKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "vpnarch", "config.yaml")
	var out bytes.Buffer

	var validated string
	w := NewWizard(strings.NewReader("3\n1\nAIzaSyTestKey123456\n"), &out, path).
		WithValidator(func(ctx context.Context, key string) error { validated = key; return nil })

	cfg, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if validated != "AIzaSyTestKey123456" {
		t.Errorf("validated %q", validated)
	}
	if !strings.Contains(out.String(), "无效选项") {
		t.Error("invalid choice not reported")
	}

	loaded, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.API.APIKey != "AIzaSyTestKey123456" || loaded.API.GetProvider() != config.ProviderGemini {
		t.Errorf("saved config = %+v", loaded.API)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestWizard_GeminiKeyRejected(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	w := NewWizard(strings.NewReader("1\nAIzaSyBadKey1234567\n"), &bytes.Buffer{}, path).
		WithValidator(func(context.Context, string) error { return errors.New("invalid API key (HTTP 400)") })

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWizard_PlaceholderKey(t *testing.T) {
	clearEnv(t)
	w := NewWizard(strings.NewReader("1\nyour-api-key-here\n"), &bytes.Buffer{}, filepath.Join(t.TempDir(), "c.yaml")).
		WithValidator(acceptAnyKey)

	if _, err := w.Run(context.Background()); err == nil {
		t.Fatal("placeholder key accepted")
	}
}

func TestWizard_Ollama(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	w := NewWizard(strings.NewReader("2\n\nqwen2.5\n"), &out, path).
		WithModelLister(func(ctx context.Context, url string) ([]string, error) {
			if url != config.DefaultOllamaBaseURL {
				t.Errorf("listed models at %q", url)
			}
			return []string{"qwen2.5:latest", "llama3.1:latest"}, nil
		})

	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "qwen2.5:latest") {
		t.Error("installed models not listed")
	}

	loaded, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.API.GetProvider() != config.ProviderOllama || loaded.Model.Name != "qwen2.5" {
		t.Errorf("saved config: provider=%q model=%q", loaded.API.Provider, loaded.Model.Name)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestWizard_UsesEnvironmentKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "AIzaSyFromEnv123456")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := NewWizard(strings.NewReader("\n"), &bytes.Buffer{}, path).
		WithValidator(acceptAnyKey).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cfg.API.APIKey != "" {
		t.Error("environment key copied into config file")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestWizard_EOF(t *testing.T) {
	clearEnv(t)
	_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}, filepath.Join(t.TempDir(), "c.yaml")).Run(context.Background())
	if err == nil {
		t.Fatal("expected error on closed input")
	}
}
