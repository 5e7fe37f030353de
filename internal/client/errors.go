package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError reports a missing or invalid credential. It is fatal
// and never retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// BackendError is any failure reported by the generation backend, at call
// setup or mid-stream.
type BackendError struct {
	StatusCode int    `json:"code,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *BackendError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Status != "":
		return fmt.Sprintf("backend error %d %s: %s", e.StatusCode, e.Status, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
	default:
		return "backend error: " + e.Message
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// overloadMarkers identify a temporarily unavailable backend.
var overloadMarkers = []string{"503", "overloaded", "unavailable"}

// IsTransientOverload reports whether err signals temporary backend
// overload. It matches an explicit 503 status, or any overload marker
// found case-insensitively in the serialized error plus its message.
func IsTransientOverload(err error) bool {
	if err == nil {
		return false
	}

	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.StatusCode == http.StatusServiceUnavailable {
		return true
	}

	signature := strings.ToLower(errorSignature(err))
	for _, marker := range overloadMarkers {
		if strings.Contains(signature, marker) {
			return true
		}
	}
	return false
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// errorSignature is the JSON form of err (exported fields only) followed by
// its message.
func errorSignature(err error) string {
	var b strings.Builder
	if data, jerr := json.Marshal(err); jerr == nil {
		b.Write(data)
	}
	b.WriteString(err.Error())
	return b.String()
}

// shortReason condenses err for retry notices.
func shortReason(err error) string {
	if err == nil {
		return "API error"
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.StatusCode == http.StatusServiceUnavailable {
		return "503 overloaded"
	}

	reason := err.Error()
	if len(reason) > 50 {
		reason = reason[:47] + "..."
	}
	return reason
}
