package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"vpnarch/internal/logging"
	"vpnarch/internal/prompt"
	"vpnarch/internal/security"

	"google.golang.org/genai"
)

// GeminiConfig holds the settings for a GeminiClient.
type GeminiConfig struct {
	APIKey            string
	Model             string
	BaseURL           string        // Optional endpoint override
	HTTPClient        *http.Client  // Optional
	SetupTimeout      time.Duration // Bound on receiving the first response
	StreamIdleTimeout time.Duration // Fail a stream that stays silent this long
}

// GeminiClient streams guides from the Google Gemini API.
type GeminiClient struct {
	client            *genai.Client
	model             string
	setupTimeout      time.Duration
	streamIdleTimeout time.Duration
}

// NewGeminiClient creates a Gemini client. A missing key is reported as a
// ConfigurationError before anything touches the network.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Message: "Gemini API key is not set (export API_KEY or run vpnarch --setup)"}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	clientConfig := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("failed to create Gemini client: %v", err)}
	}

	logging.Debug("gemini client ready", "model", cfg.Model, "key", security.MaskKey(cfg.APIKey))

	return &GeminiClient{
		client:            client,
		model:             cfg.Model,
		setupTimeout:      cfg.SetupTimeout,
		streamIdleTimeout: cfg.StreamIdleTimeout,
	}, nil
}

// Model returns the model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close closes the client connection.
func (c *GeminiClient) Close() error {
	// The genai client doesn't have an explicit close method
	return nil
}

type pullResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

// Stream opens one streaming generateContent call. The first response is
// read before returning so that overload errors surface here, where the
// Retrier can act on them.
func (c *GeminiClient) Stream(ctx context.Context, req prompt.Request) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		Temperature:       Ptr(req.Temperature),
	}
	// GenerateContentStream sends the request before returning, so the
	// setup timer has to cover that call as well as the first read.
	var setupTimer *time.Timer
	if c.setupTimeout > 0 {
		setupTimer = time.AfterFunc(c.setupTimeout, cancel)
	}
	seq := c.client.Models.GenerateContentStream(streamCtx, c.model, genai.Text(req.Prompt), config)
	next, stop := iter.Pull2(seq)

	first, err, ok := next()
	timedOut := setupTimer != nil && !setupTimer.Stop() && ctx.Err() == nil
	if err != nil || !ok || timedOut {
		stop()
		cancel()
		if timedOut {
			return nil, &BackendError{Message: fmt.Sprintf("no response within %v", c.setupTimeout), Err: err}
		}
		if err != nil {
			return nil, wrapGeminiError(err)
		}
		return StreamOf(), nil
	}

	chunks := make(chan Chunk, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(chunks)
		defer cancel()

		send := func(chunk Chunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if text := responseText(first); text != "" {
			if !send(Chunk{Text: text}) {
				stop()
				return
			}
		}

		results := make(chan pullResult)
		go func() {
			defer close(results)
			defer stop()
			for {
				resp, err, ok := next()
				if !ok {
					return
				}
				select {
				case results <- pullResult{resp, err}:
				case <-streamCtx.Done():
					return
				}
				if err != nil {
					return
				}
			}
		}()

		var idle <-chan time.Time
		var idleTimer *time.Timer
		if c.streamIdleTimeout > 0 {
			idleTimer = time.NewTimer(c.streamIdleTimeout)
			defer idleTimer.Stop()
			idle = idleTimer.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-idle:
				logging.Warn("stream idle timeout exceeded", "timeout", c.streamIdleTimeout)
				send(Chunk{Err: &BackendError{
					Message: fmt.Sprintf("stream idle timeout: no data received for %v", c.streamIdleTimeout),
				}})
				return

			case result, ok := <-results:
				if !ok {
					return
				}
				if idleTimer != nil {
					resetTimer(idleTimer, c.streamIdleTimeout)
				}
				if result.err != nil {
					send(Chunk{Err: wrapGeminiError(result.err)})
					return
				}
				if text := responseText(result.resp); text != "" {
					if !send(Chunk{Text: text}) {
						return
					}
				}
			}
		}
	}()

	return NewStream(chunks, done), nil
}

// responseText returns the visible text of a response, skipping thoughts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// wrapGeminiError converts SDK errors into BackendError, keeping status
// information for classification.
func wrapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &BackendError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BackendError{Message: err.Error(), Err: err}
}

// resetTimer safely resets a timer to a new duration.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
