package ui

import (
	"regexp"
	"strings"

	"vpnarch/internal/client"
	"vpnarch/internal/security"
)

// ErrorGuidance provides actionable suggestions for a failed generation.
type ErrorGuidance struct {
	Pattern     *regexp.Regexp // Compiled regex to match error
	Title       string         // User-friendly title
	Suggestions []string       // What user can try
	Command     string         // Relevant command hint (optional)
}

var (
	configGuidance = ErrorGuidance{
		Title:       "未配置 AI 后端",
		Suggestions: []string{"设置环境变量 GEMINI_API_KEY", "或运行设置向导重新配置"},
		Command:     "vpnarch --setup",
	}
	overloadGuidance = ErrorGuidance{
		Title:       "服务器持续繁忙",
		Suggestions: []string{"已自动重试多次，请稍后再试", "或在配置中换用其他模型"},
		Command:     "vpnarch --preset fast",
	}
)

// errorGuidancePatterns contains known error patterns with guidance.
var errorGuidancePatterns = []ErrorGuidance{
	{
		Pattern:     regexp.MustCompile(`(?i)(unauthorized|401|api.?key.*(invalid|not valid)|invalid.*api.?key)`),
		Title:       "API 密钥无效",
		Suggestions: []string{"检查密钥是否完整复制", "在 aistudio.google.com 重新生成密钥"},
		Command:     "vpnarch --setup",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(forbidden|403|permission denied)`),
		Title:       "没有访问权限",
		Suggestions: []string{"确认该密钥可以使用所选模型", "检查所在地区是否支持 Gemini API"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(rate limit|429|too many requests|quota|resource.?exhausted)`),
		Title:       "请求过于频繁或额度已用完",
		Suggestions: []string{"等待片刻后再试", "检查 API 额度使用情况"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(model.*not.*(found|installed)|404)`),
		Title:       "找不到模型",
		Suggestions: []string{"检查配置中的模型名称", "使用 Ollama 时先运行 ollama pull <模型>"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(connection refused|no such host|network is unreachable|dial tcp)`),
		Title:       "无法连接 AI 服务",
		Suggestions: []string{"检查网络连接和代理设置", "使用 Ollama 时确认 ollama serve 正在运行"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(deadline exceeded|timeout|no response within|idle for)`),
		Title:       "请求超时",
		Suggestions: []string{"检查网络连接", "稍后重试"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(safety|blocked|content policy)`),
		Title:       "内容被安全策略拦截",
		Suggestions: []string{"换一种组合重新生成"},
	},
}

// GetErrorGuidance returns guidance for a generation error, or nil if no match.
func GetErrorGuidance(err error) *ErrorGuidance {
	if err == nil {
		return nil
	}
	if client.IsConfigurationError(err) {
		g := configGuidance
		return &g
	}
	if client.IsTransientOverload(err) {
		g := overloadGuidance
		return &g
	}
	msg := err.Error()
	for _, g := range errorGuidancePatterns {
		if g.Pattern.MatchString(msg) {
			return &g
		}
	}
	return nil
}

// FormatErrorGuidance renders the guidance for err below the failure
// message, or returns "" if there is none.
func FormatErrorGuidance(styles *Styles, err error) string {
	guidance := GetErrorGuidance(err)
	if guidance == nil {
		return ""
	}

	var result strings.Builder
	result.WriteString(styles.Dim.Render("  ⎿  ") + styles.Warning.Render(guidance.Title))
	for _, suggestion := range guidance.Suggestions {
		result.WriteString("\n")
		result.WriteString(styles.Dim.Render("     • ") + styles.Subtitle.Render(suggestion))
	}
	if guidance.Command != "" {
		result.WriteString("\n")
		result.WriteString(styles.Dim.Render("     ") + styles.Accent.Render("试试: "+guidance.Command))
	}
	return result.String()
}

// failureDetails renders the cause of a failed generation and any guidance
// for it, starting with a blank line. It returns "" for a nil error.
func failureDetails(styles *Styles, err error) string {
	if err == nil {
		return ""
	}
	details := "\n\n" + styles.Dim.Render("原因: "+truncateError(security.RedactSecrets(err.Error()), 100))
	if g := FormatErrorGuidance(styles, err); g != "" {
		details += "\n" + g
	}
	return details
}

// truncateError shortens an error message to a single line of maxLen bytes.
func truncateError(msg string, maxLen int) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.TrimSpace(msg)

	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}
