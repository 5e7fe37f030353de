package ui

import "github.com/charmbracelet/lipgloss"

// Colors for the UI theme - Muted Professional Palette
var (
	ColorPrimary   = lipgloss.Color("#A78BFA") // Soft Purple (Lavender 400)
	ColorSecondary = lipgloss.Color("#22D3EE") // Bright Cyan (Cyan 400)
	ColorSuccess   = lipgloss.Color("#059669") // Emerald 600
	ColorWarning   = lipgloss.Color("#D97706") // Amber 600
	ColorError     = lipgloss.Color("#DC2626") // Red 600
	ColorMuted     = lipgloss.Color("#9CA3AF") // Gray 400
	ColorText      = lipgloss.Color("#F1F5F9") // Slate 100
	ColorBorder    = lipgloss.Color("#1E293B") // Slate 800
	ColorDim       = lipgloss.Color("#6B7280") // Gray 500
	ColorAccent    = lipgloss.Color("#F472B6") // Pink 400
)

// Styles holds every lipgloss style used by the wizard and the printer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Sidebar
	Brand      lipgloss.Style
	StepActive lipgloss.Style
	StepDone   lipgloss.Style
	StepTodo   lipgloss.Style
	Disclaimer lipgloss.Style

	// Selection cards
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardTitle    lipgloss.Style
	CardDesc     lipgloss.Style

	// Guide view
	GuideHeader lipgloss.Style
	Summary     lipgloss.Style
	Loading     lipgloss.Style
	Typing      lipgloss.Style
	Viewport    lipgloss.Style

	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Dim     lipgloss.Style
	Accent  lipgloss.Style
	Help    lipgloss.Style

	CodeBlockHeader lipgloss.Style
}

// DefaultStyles returns the default dark theme.
func DefaultStyles() *Styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		MarginBottom(0)

	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorText),
		Subtitle: lipgloss.NewStyle().Foreground(ColorMuted),

		Brand:      lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary),
		StepActive: lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary),
		StepDone:   lipgloss.NewStyle().Foreground(ColorSuccess),
		StepTodo:   lipgloss.NewStyle().Foreground(ColorDim),
		Disclaimer: lipgloss.NewStyle().Foreground(ColorDim).Italic(true),

		Card:         card,
		CardSelected: card.BorderForeground(ColorSecondary),
		CardTitle:    lipgloss.NewStyle().Bold(true).Foreground(ColorText),
		CardDesc:     lipgloss.NewStyle().Foreground(ColorMuted),

		GuideHeader: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		Summary:     lipgloss.NewStyle().Foreground(ColorMuted),
		Loading:     lipgloss.NewStyle().Foreground(ColorSecondary),
		Typing:      lipgloss.NewStyle().Foreground(ColorSecondary).Italic(true),
		Viewport:    lipgloss.NewStyle(),

		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Dim:     lipgloss.NewStyle().Foreground(ColorDim),
		Accent:  lipgloss.NewStyle().Foreground(ColorAccent),
		Help:    lipgloss.NewStyle().Foreground(ColorDim),

		CodeBlockHeader: lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true),
	}
}

// PlainStyles returns styles without colors, for --no-color output.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Title: plain, Subtitle: plain,
		Brand: plain, StepActive: plain, StepDone: plain, StepTodo: plain, Disclaimer: plain,
		Card: plain, CardSelected: plain, CardTitle: plain, CardDesc: plain,
		GuideHeader: plain, Summary: plain, Loading: plain, Typing: plain, Viewport: plain,
		Error: plain, Warning: plain, Success: plain, Dim: plain, Accent: plain, Help: plain,
		CodeBlockHeader: plain,
	}
}
