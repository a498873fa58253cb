package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/canonical/rocks-toolbox/src/broker"
	"github.com/canonical/rocks-toolbox/src/contracts"
)

// groupID is the consumer group of the status view.
const groupID = "lpci-build-tui"

// Subscribe opens the build event subscription for a view of runID.
// Subscribing before the run starts guarantees no event is missed.
func Subscribe(ctx context.Context, brk broker.Broker) (<-chan broker.Message, error) {
	events, err := brk.Subscribe(ctx, contracts.TopicBuildEvents, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to build events: %w", err)
	}
	return events, nil
}

// Run shows the status view of runID until the run finishes, the user
// quits or ctx is cancelled.
func Run(ctx context.Context, runID string, events <-chan broker.Message, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(runID, events), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("status view failed: %w", err)
	}
	return nil
}
