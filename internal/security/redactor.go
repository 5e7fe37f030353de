package security

import (
	"regexp"
	"strings"
)

// SecretRedactor masks credentials in text before it is logged or shown.
type SecretRedactor struct {
	patterns []*regexp.Regexp
}

// NewSecretRedactor creates a redactor for the credentials this program
// handles: Google API keys, bearer tokens and key=value assignments.
func NewSecretRedactor() *SecretRedactor {
	return &SecretRedactor{
		patterns: []*regexp.Regexp{
			// Google API keys
			regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),

			// Bearer tokens (limited to 256 chars)
			regexp.MustCompile(`(?i)Bearer\s+([a-zA-Z0-9_\-\.]{10,256})`),

			// api_key=..., key: "...", x-goog-api-key: ...
			regexp.MustCompile(`(?i)\b((?:x-goog-)?api[_-]?key|access[_-]?token|key)\s*[:=]\s*["']?([a-zA-Z0-9_\-\.]{8,})["']?`),
		},
	}
}

// Redact masks all detected secrets in text.
func (r *SecretRedactor) Redact(text string) string {
	if text == "" {
		return ""
	}

	result := text
	for _, pattern := range r.patterns {
		if !pattern.MatchString(result) {
			continue
		}
		if pattern.NumSubexp() == 0 {
			result = pattern.ReplaceAllString(result, "[REDACTED]")
			continue
		}
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			subs := pattern.FindStringSubmatch(match)
			secret := subs[len(subs)-1]
			if secret == "" || secret == "[REDACTED]" {
				return match
			}
			idx := strings.LastIndex(match, secret)
			return match[:idx] + "[REDACTED]" + match[idx+len(secret):]
		})
	}
	return result
}

var defaultRedactor = NewSecretRedactor()

// RedactSecrets masks secrets in text with the default redactor.
func RedactSecrets(text string) string {
	return defaultRedactor.Redact(text)
}
