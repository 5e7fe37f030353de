package guide

import (
	"context"
	"fmt"
	"sync"

	"vpnarch/internal/client"
	"vpnarch/internal/logging"
	"vpnarch/internal/prefs"
	"vpnarch/internal/prompt"
)

// Service builds the request for a set of preferences and opens the stream
// through a StreamingClient, normally a *client.Retrier.
type Service struct {
	mu       sync.RWMutex
	streamer client.StreamingClient
}

// NewService creates a Service. streamer may be nil until a backend is
// configured; generations then fail with a ConfigurationError.
func NewService(streamer client.StreamingClient) *Service {
	return &Service{streamer: streamer}
}

// SetStreamer swaps the backend used by later generations and returns the
// previous one so the caller can close it.
func (s *Service) SetStreamer(streamer client.StreamingClient) client.StreamingClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.streamer
	s.streamer = streamer
	return old
}

// Model returns the model of the current backend, or "" if none.
func (s *Service) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.streamer == nil {
		return ""
	}
	return s.streamer.Model()
}

// Generate implements Generator.
func (s *Service) Generate(ctx context.Context, p prefs.Preferences) (*client.Stream, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preferences: %w", err)
	}

	s.mu.RLock()
	streamer := s.streamer
	s.mu.RUnlock()
	if streamer == nil {
		return nil, &client.ConfigurationError{Message: "no generation backend configured"}
	}

	req := prompt.Build(p)
	logging.Debug("opening guide stream", "model", streamer.Model(), "prefs", p.String(), "prompt_len", len(req.Prompt))
	return streamer.Stream(ctx, req)
}
