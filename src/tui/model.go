// Package tui renders a live view of a remote build run from the build
// events published on the broker.
package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/canonical/rocks-toolbox/src/broker"
	"github.com/canonical/rocks-toolbox/src/contracts"
	"github.com/canonical/rocks-toolbox/src/sanitize"
)

// Column widths of the build table.
const (
	archWidth  = 10
	stateWidth = 28
)

// EventMsg delivers one build event to the model.
type EventMsg contracts.BuildEvent

// eventsClosedMsg reports that the event subscription ended.
type eventsClosedMsg struct{}

// Model is the Bubble Tea model of the build status view.
type Model struct {
	runID     string
	events    <-chan broker.Message
	run       *contracts.BuildRun
	builds    []contracts.BuildRecord // sorted by architecture
	artifacts []string
	header    Header
	spinner   spinner.Model
	styles    *StyleConfig
	cursor    int
	width     int
	height    int
	ready     bool
	done      bool
}

// NewModel creates a view of runID fed by events. An empty runID shows
// every run.
func NewModel(runID string, events <-chan broker.Message) Model {
	styles := DefaultStyles()
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(styles.Pending)

	return Model{
		runID:   runID,
		events:  events,
		header:  NewHeader(runID, styles),
		spinner: s,
		styles:  styles,
	}
}

// waitForEvent reads the next build event from events.
func waitForEvent(events <-chan broker.Message) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		for msg := range events {
			var event contracts.BuildEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				continue
			}
			return EventMsg(event)
		}
		return eventsClosedMsg{}
	}
}

// Init starts the spinner and the event subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles terminal, spinner and build event messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.builds)-1 {
				m.cursor++
			}
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(contracts.BuildEvent(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.done = true
	}

	return m, nil
}

// apply folds one event into the model.
func (m *Model) apply(event contracts.BuildEvent) {
	if m.runID != "" && event.RunID != m.runID {
		return
	}

	switch event.Kind {
	case contracts.EventRunStarted, contracts.EventRunFinished:
		if event.Run != nil {
			m.run = event.Run
			m.header.SetRun(event.Run)
		}
		if event.Kind == contracts.EventRunFinished {
			m.done = true
		}
	case contracts.EventBuildUpdated:
		if event.Build != nil {
			m.upsertBuild(*event.Build)
		}
	case contracts.EventArtifactSaved:
		if event.Artifact != "" {
			m.artifacts = append(m.artifacts, event.Artifact)
		}
	}
}

func (m *Model) upsertBuild(b contracts.BuildRecord) {
	for i := range m.builds {
		if m.builds[i].BuildLink == b.BuildLink {
			m.builds[i] = b
			return
		}
	}
	m.builds = append(m.builds, b)
	sort.SliceStable(m.builds, func(i, j int) bool {
		return m.builds[i].ArchTag < m.builds[j].ArchTag
	})
}

// Builds returns the latest known state of each build.
func (m Model) Builds() []contracts.BuildRecord {
	return m.builds
}

// Done reports whether the run finished.
func (m Model) Done() bool {
	return m.done
}

// View renders the header, the build table, the selected build and the
// downloaded artifacts.
func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	sections := []string{m.header.Render(m.width)}
	sections = append(sections, m.renderBuilds())
	if detail := m.renderDetail(); detail != "" {
		sections = append(sections, detail)
	}
	if len(m.artifacts) > 0 {
		sections = append(sections, m.renderArtifacts())
	}
	sections = append(sections, m.styles.HelpStyle().Render("j/k: select build • q: quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderBuilds() string {
	if len(m.builds) == 0 {
		return fmt.Sprintf(" %s Waiting for Launchpad to list the builds", m.spinner.View())
	}

	finished := 0
	var rows []string
	for i, b := range m.builds {
		if b.Terminal {
			finished++
		}
		marker := "  "
		if i == m.cursor {
			marker = lipgloss.NewStyle().Foreground(m.styles.Accent).Render("► ")
		}
		indicator := m.spinner.View()
		switch {
		case b.Successful:
			indicator = "✓"
		case b.Terminal:
			indicator = "✗"
		}
		row := fmt.Sprintf("%s %s %s", indicator, Cell(b.ArchTag, archWidth), Cell(b.State, stateWidth))
		rows = append(rows, marker+m.styles.BuildStyle(b).Render(row))
	}

	title := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Builds %d/%d finished", finished, len(m.builds)))
	return m.styles.PanelStyle().Render(title + "\n" + strings.Join(rows, "\n"))
}

func (m Model) renderDetail() string {
	if m.cursor >= len(m.builds) {
		return ""
	}
	b := m.builds[m.cursor]
	width := m.width - 2
	secondary := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Padding(0, 1)

	lines := []string{Wrap(sanitize.StripANSI(b.Title), width)}
	if b.WebLink != "" {
		lines = append(lines, Wrap(b.WebLink, width))
	}
	if b.LogPath != "" {
		lines = append(lines, Wrap("log: "+b.LogPath, width))
	}
	return secondary.Render(strings.Join(lines, "\n"))
}

func (m Model) renderArtifacts() string {
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(m.styles.Success).Render("Artifacts")}
	for _, a := range m.artifacts {
		lines = append(lines, "  "+Truncate(a, m.width-2, true))
	}
	return strings.Join(lines, "\n")
}
