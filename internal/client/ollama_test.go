package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"

	"vpnarch/internal/prompt"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "llama3.1"})
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	return c
}

func TestOllamaStream_DeliversFragmentsInOrder(t *testing.T) {
	var got api.GenerateRequest
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		enc.Encode(api.GenerateResponse{Model: "llama3.1", Response: "## Step 1\n"})
		enc.Encode(api.GenerateResponse{Model: "llama3.1", Response: ""})
		enc.Encode(api.GenerateResponse{Model: "llama3.1", Response: "Install package.\n"})
		enc.Encode(api.GenerateResponse{Model: "llama3.1", Done: true})
	})

	req := prompt.Request{SystemInstruction: "sys", Prompt: "guide", Temperature: 0.3}
	stream, err := c.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, err := collect(stream)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if text != "## Step 1\nInstall package.\n" {
		t.Errorf("text = %q", text)
	}
	<-stream.Done

	if got.Model != "llama3.1" || got.System != "sys" || got.Prompt != "guide" {
		t.Errorf("request = %+v", got)
	}
	if temp, ok := got.Options["temperature"].(float64); !ok || temp < 0.29 || temp > 0.31 {
		t.Errorf("temperature option = %v", got.Options["temperature"])
	}
}

func TestOllamaStream_OverloadIsReturnedFromStream(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":"server busy, please try again"}`+"\n")
	})

	_, err := c.Stream(context.Background(), prompt.Request{Prompt: "p"})
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if backendErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", backendErr.StatusCode)
	}
	if !IsTransientOverload(err) {
		t.Error("503 not classified as transient")
	}
}

func TestOllamaStream_MissingModel(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'llama3.1' not found"}`+"\n")
	})

	_, err := c.Stream(context.Background(), prompt.Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransientOverload(err) {
		t.Errorf("%v classified as transient", err)
	}
}

func TestNewOllamaClient_Validation(t *testing.T) {
	if _, err := NewOllamaClient(OllamaConfig{}); !IsConfigurationError(err) {
		t.Errorf("empty model: err = %v, want ConfigurationError", err)
	}
	c, err := NewOllamaClient(OllamaConfig{Model: "qwen2.5"})
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	if c.Model() != "qwen2.5" {
		t.Errorf("Model() = %q", c.Model())
	}
}
