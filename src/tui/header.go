package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/canonical/rocks-toolbox/src/contracts"
)

// Header is the status bar above the build table.
type Header struct {
	run    *contracts.BuildRun
	runID  string
	styles *StyleConfig
}

// NewHeader creates a header for runID.
func NewHeader(runID string, styles *StyleConfig) Header {
	return Header{runID: runID, styles: styles}
}

// SetRun updates the run shown by the header.
func (h *Header) SetRun(run *contracts.BuildRun) {
	h.run = run
}

// Render renders the header at the given width.
func (h Header) Render(width int) string {
	title := h.styles.TitleStyle().Render("lpci-build")

	if h.run == nil {
		waiting := lipgloss.NewStyle().
			Foreground(h.styles.TextSecondary).
			Render(fmt.Sprintf("run %s: preparing", h.runID))
		return lipgloss.JoinHorizontal(lipgloss.Left, title, waiting)
	}

	status := h.run.Status
	if status == "" {
		status = contracts.RunRunning
	}
	summary := fmt.Sprintf(" %s on %s", h.run.RockName, h.run.Series)
	if len(h.run.Architectures) > 0 {
		summary += fmt.Sprintf(" %v", h.run.Architectures)
	}
	line := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		h.styles.RunStyle(status).Render(status),
		summary,
	)

	repo := h.run.Repository
	if h.run.WebLink != "" {
		repo = h.run.WebLink
	}
	secondary := lipgloss.NewStyle().Foreground(h.styles.TextSecondary).Padding(0, 1)
	lines := []string{line}
	if repo != "" {
		lines = append(lines, secondary.Render(Truncate(repo, width-2, true)))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
