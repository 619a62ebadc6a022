// Package ui renders terminal output: styled text, markdown, syntax
// highlighted diffs and interactive pickers.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the UI.
type Theme struct {
	Primary   lipgloss.Color // main accent (commands, highlights)
	Secondary lipgloss.Color // secondary accent (headers, borders)

	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Muted   lipgloss.Color // dimmed/secondary text
	Text    lipgloss.Color // primary text

	Spinner lipgloss.Color
	Border  lipgloss.Color
}

// DefaultTheme returns the default color theme (gruvbox).
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#b8bb26"), // gruvbox green
		Secondary: lipgloss.Color("#83a598"), // gruvbox aqua
		Success:   lipgloss.Color("#b8bb26"),
		Error:     lipgloss.Color("#fb4934"), // gruvbox red
		Warning:   lipgloss.Color("#fabd2f"), // gruvbox yellow
		Muted:     lipgloss.Color("#928374"), // gruvbox gray
		Text:      lipgloss.Color("#ebdbb2"), // gruvbox foreground
		Spinner:   lipgloss.Color("#d3869b"), // gruvbox purple
		Border:    lipgloss.Color("#83a598"),
	}
}

// ThemeConfig mirrors config.ThemeConfig so this package stays decoupled
// from the config layer. Colors are ANSI numbers (0-255) or #RRGGBB.
type ThemeConfig struct {
	Primary   string
	Secondary string
	Success   string
	Error     string
	Warning   string
	Muted     string
	Text      string
	Spinner   string
}

// ThemeFromConfig creates a theme with config overrides applied.
func ThemeFromConfig(cfg ThemeConfig) *Theme {
	theme := DefaultTheme()

	if cfg.Primary != "" {
		theme.Primary = lipgloss.Color(cfg.Primary)
	}
	if cfg.Secondary != "" {
		theme.Secondary = lipgloss.Color(cfg.Secondary)
		theme.Border = lipgloss.Color(cfg.Secondary) // border follows secondary
	}
	if cfg.Success != "" {
		theme.Success = lipgloss.Color(cfg.Success)
	}
	if cfg.Error != "" {
		theme.Error = lipgloss.Color(cfg.Error)
	}
	if cfg.Warning != "" {
		theme.Warning = lipgloss.Color(cfg.Warning)
	}
	if cfg.Muted != "" {
		theme.Muted = lipgloss.Color(cfg.Muted)
	}
	if cfg.Text != "" {
		theme.Text = lipgloss.Color(cfg.Text)
	}
	if cfg.Spinner != "" {
		theme.Spinner = lipgloss.Color(cfg.Spinner)
	}

	return theme
}

// currentTheme is the active theme instance.
var currentTheme = DefaultTheme()

// GetTheme returns the current active theme.
func GetTheme() *Theme {
	return currentTheme
}

// InitTheme initializes the theme from config.
func InitTheme(cfg ThemeConfig) {
	currentTheme = ThemeFromConfig(cfg)
}

// Styles holds styled text helpers bound to a renderer.
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style

	Spinner lipgloss.Style
	Command lipgloss.Style
	Footer  lipgloss.Style

	DiffHeader lipgloss.Style // diff hunk separators and file headers
}

// NewStyles creates a Styles instance for the given output. Binding to the
// output file lets lipgloss pick the right color profile per stream.
func NewStyles(output *os.File) *Styles {
	return NewStylesWithTheme(output, currentTheme)
}

// NewStylesWithTheme creates styles with a specific theme.
func NewStylesWithTheme(output *os.File, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,
		theme:    theme,

		Title:       r.NewStyle().Bold(true).Foreground(theme.Text),
		Subtitle:    r.NewStyle().Foreground(theme.Muted),
		Success:     r.NewStyle().Foreground(theme.Success),
		Error:       r.NewStyle().Foreground(theme.Error),
		Warning:     r.NewStyle().Foreground(theme.Warning),
		Muted:       r.NewStyle().Foreground(theme.Muted),
		Bold:        r.NewStyle().Bold(true),
		Highlighted: r.NewStyle().Bold(true).Foreground(theme.Primary),

		TableHeader: r.NewStyle().Bold(true).Foreground(theme.Text).Padding(0, 1),
		TableCell:   r.NewStyle().Padding(0, 1),

		Spinner: r.NewStyle().Foreground(theme.Spinner),
		Command: r.NewStyle().Bold(true).Foreground(theme.Primary),
		Footer:  r.NewStyle().Foreground(theme.Muted),

		DiffHeader: r.NewStyle().Bold(true).Foreground(theme.Secondary),
	}
}

// DefaultStyles returns styles for stderr, where status output goes.
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Truncate shortens a string to maxLen with ellipsis.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
