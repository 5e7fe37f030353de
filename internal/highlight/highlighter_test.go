package highlight

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"sh":        "bash",
		"Shell":     "bash",
		" yml ":     "yaml",
		"wireguard": "ini",
		"ps1":       "powershell",
		"go":        "go",
		"":          "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	h := New("")
	tests := map[string]string{
		"/etc/wireguard/wg0.conf": "ini",
		"docker-compose.yml":      "yaml",
		"client.ovpn":             "bash",
		"setup.ps1":               "powershell",
		"Dockerfile":              "docker",
		"notes":                   "",
	}
	for in, want := range tests {
		if got := h.DetectLanguage(in); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHighlightAddsColor(t *testing.T) {
	h := New("monokai")
	code := "sudo apt install -y wireguard"
	got := h.Highlight(code, "bash")
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escapes in %q", got)
	}
	if !strings.Contains(got, "wireguard") {
		t.Errorf("highlighted output lost text: %q", got)
	}
}

func TestHighlightUnknownStyleFallsBack(t *testing.T) {
	h := New("no-such-style")
	if got := h.Highlight("[Interface]\nAddress = 10.0.0.1/24\n", "ini"); !strings.Contains(got, "Address") {
		t.Errorf("output lost text: %q", got)
	}
}
