package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/canonical/rocks-toolbox/src/contracts"
)

// StyleConfig holds the colors of the build status view.
type StyleConfig struct {
	Accent        lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color
	Selected      lipgloss.Color

	Pending lipgloss.Color
	Success lipgloss.Color
	Failure lipgloss.Color
}

// DefaultStyles returns the default palette.
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		Accent:        lipgloss.Color("#E95420"), // Ubuntu orange
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		Selected:      lipgloss.Color("#303134"),
		Pending:       lipgloss.Color("#FBBC04"),
		Success:       lipgloss.Color("#34A853"),
		Failure:       lipgloss.Color("#EA4335"),
	}
}

// TitleStyle returns the style of the view title.
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.Accent).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns the style of the key help line.
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 1)
}

// PanelStyle returns the bordered container of the build table.
func (s *StyleConfig) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor).
		Padding(0, 1)
}

// BuildStyle colors a build row by its state.
func (s *StyleConfig) BuildStyle(b contracts.BuildRecord) lipgloss.Style {
	style := lipgloss.NewStyle()
	switch {
	case b.Successful:
		return style.Foreground(s.Success)
	case b.Terminal:
		return style.Foreground(s.Failure).Bold(true)
	default:
		return style.Foreground(s.Pending)
	}
}

// RunStyle colors a run status.
func (s *StyleConfig) RunStyle(status string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case contracts.RunSucceeded:
		return style.Foreground(s.Success)
	case contracts.RunRunning, "":
		return style.Foreground(s.Pending)
	default:
		return style.Foreground(s.Failure)
	}
}
