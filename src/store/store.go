// Package store defines the interface for persisting build run history.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canonical/rocks-toolbox/src/contracts"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store defines the interface for persisting runs and build states.
type Store interface {
	// CreateRun records a new run
	CreateRun(ctx context.Context, run *contracts.BuildRun) error

	// UpdateRun updates the repository, commit and status of a run
	UpdateRun(ctx context.Context, run *contracts.BuildRun) error

	// FinishRun sets the final status of a run
	FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error

	// RecordBuild inserts or replaces the latest state of a build
	RecordBuild(ctx context.Context, build *contracts.BuildRecord) error

	// GetRun returns a run by ID
	GetRun(ctx context.Context, runID string) (*contracts.BuildRun, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]contracts.BuildRun, error)

	// ListBuilds returns the builds of a run ordered by architecture
	ListBuilds(ctx context.Context, runID string) ([]contracts.BuildRecord, error)

	// Close closes the store connection
	Close() error
}

func notFound(runID string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, runID)
}
