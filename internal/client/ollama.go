package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vpnarch/internal/logging"
	"vpnarch/internal/prompt"
	"vpnarch/internal/security"

	"github.com/ollama/ollama/api"
)

// OllamaConfig holds configuration for an Ollama client.
type OllamaConfig struct {
	BaseURL     string // Ollama server URL (default: http://localhost:11434)
	Model       string // Model name from 'ollama list'
	HTTPTimeout time.Duration
}

// OllamaClient streams guides from a local or remote Ollama server. It
// needs no credential.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates an Ollama client.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, &ConfigurationError{Message: "Ollama model name is required (model.name)"}
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("invalid Ollama URL %q: %v", cfg.BaseURL, err)}
	}
	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	// Streams can run for minutes, so only the dial and response headers
	// are bounded.
	httpClient, err := security.NewStreamingHTTPClient(security.DefaultTLSConfig(), cfg.HTTPTimeout)
	if err != nil {
		return nil, &ConfigurationError{Message: err.Error()}
	}

	return &OllamaClient{
		client: api.NewClient(baseURL, httpClient),
		model:  cfg.Model,
	}, nil
}

// Model returns the model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Close is a no-op; the HTTP client has nothing to release.
func (c *OllamaClient) Close() error {
	return nil
}

// Stream opens one /api/generate call. It returns once the first response
// has arrived or the call has failed.
func (c *OllamaClient) Stream(ctx context.Context, req prompt.Request) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	genReq := &api.GenerateRequest{
		Model:  c.model,
		System: req.SystemInstruction,
		Prompt: req.Prompt,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}

	chunks := make(chan Chunk, 10)
	done := make(chan struct{})
	setup := make(chan error, 1)

	go func() {
		defer close(done)
		defer close(chunks)
		defer cancel()

		started := false
		err := c.client.Generate(streamCtx, genReq, func(resp api.GenerateResponse) error {
			if !started {
				started = true
				setup <- nil
			}
			if resp.Response == "" {
				return nil
			}
			select {
			case chunks <- Chunk{Text: resp.Response}:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})

		if !started {
			setup <- c.wrapOllamaError(err)
			return
		}
		if err != nil && ctx.Err() == nil {
			select {
			case chunks <- Chunk{Err: c.wrapOllamaError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	if err := <-setup; err != nil {
		return nil, err
	}
	return NewStream(chunks, done), nil
}

// wrapOllamaError converts Ollama errors into BackendError.
func (c *OllamaClient) wrapOllamaError(err error) error {
	if err == nil {
		return nil
	}

	if statusErr, ok := asStatusError(err); ok {
		msg := statusErr.ErrorMessage
		if statusErr.StatusCode == http.StatusNotFound {
			msg = fmt.Sprintf("model '%s' is not installed (run: ollama pull %s): %s", c.model, c.model, msg)
		}
		return &BackendError{StatusCode: statusErr.StatusCode, Status: statusErr.Status, Message: msg, Err: err}
	}

	if strings.Contains(err.Error(), "connection refused") {
		return &BackendError{Message: "Ollama server is not running (start it with: ollama serve)", Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BackendError{Message: err.Error(), Err: err}
}

func asStatusError(err error) (api.StatusError, bool) {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) && statusErrPtr != nil {
		return *statusErrPtr, true
	}
	return api.StatusError{}, false
}
