package output

import "github.com/charmbracelet/lipgloss"

// Palette (256-color codes).
const (
	ColorAccent   = "75"  // titles
	ColorGray     = "245" // secondary text
	ColorDarkGray = "240" // scores
	ColorGreen    = "114"
	ColorRed      = "203"
	ColorYellow   = "221"
)

// Styles holds the lipgloss styles used by Writer.
type Styles struct {
	Title    lipgloss.Style
	Provider lipgloss.Style
	Detail   lipgloss.Style
	Score    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Provider: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Detail:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns styles that render text unchanged.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:    plain,
		Provider: plain,
		Detail:   plain,
		Score:    plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
	}
}
