package security

import (
	"strings"
	"testing"
)

func TestRedactSecrets(t *testing.T) {
	key := "AIza" + strings.Repeat("x", 35)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"google key", "request failed for " + key, "request failed for [REDACTED]"},
		{"query param", "GET /v1beta/models?key=abcdefgh12345", "GET /v1beta/models?key=[REDACTED]"},
		{"header", "x-goog-api-key: sk-abcdefghij", "x-goog-api-key: [REDACTED]"},
		{"bearer", "Authorization: Bearer abcdefghijklmnop", "Authorization: Bearer [REDACTED]"},
		{"short value kept", "key=abc", "key=abc"},
		{"plain text", "The model is overloaded.", "The model is overloaded."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactSecrets(tt.in); got != tt.want {
				t.Errorf("RedactSecrets(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
