// Package highlight colors the code blocks of a generated guide: shell
// commands, WireGuard/OpenVPN configs, compose files and the like.
package highlight

import (
	"bytes"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter renders code with ANSI colors.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// New creates a Highlighter for the named chroma style ("monokai",
// "dracula", "github-dark", ...). Unknown styles fall back to chroma's default.
func New(style string) *Highlighter {
	if style == "" {
		style = "monokai"
	}
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return &Highlighter{
		style:     s,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight colors code using the lexer for lang. Code is returned as-is
// when no lexer matches or tokenising fails.
func (h *Highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(Normalize(lang))
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// fence tags models tend to use, mapped to chroma lexer names
var langAliases = map[string]string{
	"sh":         "bash",
	"shell":      "bash",
	"console":    "bash",
	"terminal":   "bash",
	"zsh":        "bash",
	"ps":         "powershell",
	"ps1":        "powershell",
	"pwsh":       "powershell",
	"cmd":        "batchfile",
	"bat":        "batchfile",
	"yml":        "yaml",
	"conf":       "ini",
	"cfg":        "ini",
	"wireguard":  "ini",
	"wg":         "ini",
	"ovpn":       "bash",
	"openvpn":    "bash",
	"compose":    "yaml",
	"dockerfile": "docker",
	"iptables":   "bash",
	"ufw":        "bash",
}

// Normalize maps a code fence tag to a chroma lexer name.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if alias, ok := langAliases[lang]; ok {
		return alias
	}
	return lang
}

// file names that show up as code block titles in guides
var fileLanguages = map[string]string{
	"wg0.conf":            "ini",
	"sysctl.conf":         "ini",
	"server.conf":         "bash",
	"docker-compose.yml":  "yaml",
	"docker-compose.yaml": "yaml",
	"compose.yml":         "yaml",
	"compose.yaml":        "yaml",
	"dockerfile":          "docker",
	"config.json":         "json",
}

// DetectLanguage guesses a lexer name from a file name such as
// "/etc/wireguard/wg0.conf" or "client.ovpn". It returns "" if unsure.
func (h *Highlighter) DetectLanguage(filename string) string {
	base := strings.ToLower(path.Base(strings.TrimSpace(filename)))
	if lang, ok := fileLanguages[base]; ok {
		return lang
	}

	switch path.Ext(base) {
	case ".conf", ".cfg", ".ini":
		return "ini"
	case ".ovpn", ".sh":
		return "bash"
	case ".ps1":
		return "powershell"
	case ".yml", ".yaml":
		return "yaml"
	case ".json":
		return "json"
	}

	if lexer := lexers.Match(base); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
