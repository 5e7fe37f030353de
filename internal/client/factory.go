package client

import (
	"context"
	"fmt"

	"vpnarch/internal/config"
	"vpnarch/internal/logging"
	"vpnarch/internal/ratelimit"
	"vpnarch/internal/security"
)

// NewClient creates the backend client selected by cfg.API.Provider.
// This is the main entry point for client creation.
func NewClient(ctx context.Context, cfg *config.Config) (StreamingClient, error) {
	provider := cfg.API.GetProvider()

	logging.Debug("creating client",
		"provider", provider,
		"model", cfg.Model.Name)

	switch provider {
	case config.ProviderGemini:
		key := security.GetGeminiKey(cfg.API.APIKey)
		if key.IsSet() {
			logging.Debug("using gemini key", "source", key.Source, "env", key.EnvVar)
		}
		httpClient, err := security.NewStreamingHTTPClient(security.DefaultTLSConfig(), cfg.API.Retry.HTTPTimeout)
		if err != nil {
			return nil, &ConfigurationError{Message: err.Error()}
		}
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:            key.Value,
			HTTPClient:        httpClient,
			Model:             cfg.Model.Name,
			SetupTimeout:      cfg.API.Retry.HTTPTimeout,
			StreamIdleTimeout: cfg.API.Retry.StreamIdleTimeout,
		})
	case config.ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.API.OllamaBaseURL,
			Model:       cfg.Model.Name,
			HTTPTimeout: cfg.API.Retry.HTTPTimeout,
		})
	default:
		return nil, &ConfigurationError{Message: fmt.Sprintf("unknown provider %q", provider)}
	}
}

// RetryConfigFrom extracts the retry policy from cfg.
func RetryConfigFrom(cfg *config.Config) RetryConfig {
	return RetryConfig{
		MaxRetries: cfg.API.Retry.MaxRetries,
		BaseDelay:  cfg.API.Retry.BaseDelay,
		MaxJitter:  cfg.API.Retry.MaxJitter,
	}
}

// LimiterFrom builds the request limiter configured in cfg, or nil.
func LimiterFrom(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.API.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.API.RateLimit.BurstSize,
	})
}

// NewResilientClient wraps c in a Retrier using the retry policy and
// request limiter configured in cfg.
func NewResilientClient(c StreamingClient, cfg *config.Config, opts ...RetrierOption) *Retrier {
	opts = append([]RetrierOption{WithLimiter(LimiterFrom(cfg))}, opts...)
	return NewRetrier(c, RetryConfigFrom(cfg), opts...)
}
