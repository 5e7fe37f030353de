// Package audit keeps a persistent history of guide generations.
package audit

import (
	"encoding/json"
	"time"
)

// Entry records one finished generation.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Protocol  string        `json:"protocol"`
	ServerOS  string        `json:"server_os"`
	ClientOS  string        `json:"client_os"`
	Model     string        `json:"model,omitempty"`
	State     string        `json:"state"`
	Bytes     int           `json:"bytes"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Succeeded reports whether the generation completed.
func (e *Entry) Succeeded() bool {
	return e.State == "completed"
}

// MarshalJSON implements custom JSON marshaling.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type Alias Entry
	return json.Marshal(&struct {
		*Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias:      (*Alias)(e),
		DurationMs: e.Duration.Milliseconds(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type Alias Entry
	aux := &struct {
		*Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Duration = time.Duration(aux.DurationMs) * time.Millisecond
	return nil
}
