package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canonical/rocks-toolbox/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Used when no database is configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]*contracts.BuildRun
	builds map[string]map[string]contracts.BuildRecord // runID -> build link -> record
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[string]*contracts.BuildRun),
		builds: make(map[string]map[string]contracts.BuildRecord),
	}
}

// CreateRun records a new run. Creating an existing run is a no-op.
func (s *MemoryStore) CreateRun(ctx context.Context, run *contracts.BuildRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return nil
	}
	stored := copyRun(run)
	s.runs[run.RunID] = &stored
	return nil
}

// UpdateRun replaces the mutable fields of a run.
func (s *MemoryStore) UpdateRun(ctx context.Context, run *contracts.BuildRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.runs[run.RunID]
	if !ok {
		return notFound(run.RunID)
	}
	existing.Repository = run.Repository
	existing.WebLink = run.WebLink
	existing.CommitSHA1 = run.CommitSHA1
	existing.Status = run.Status
	return nil
}

// FinishRun sets the final status of a run.
func (s *MemoryStore) FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return notFound(runID)
	}
	run.Status = status
	run.FinishedAt = finishedAt
	return nil
}

// RecordBuild upserts the state of a build.
func (s *MemoryStore) RecordBuild(ctx context.Context, build *contracts.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[build.RunID]; !ok {
		return notFound(build.RunID)
	}
	if s.builds[build.RunID] == nil {
		s.builds[build.RunID] = make(map[string]contracts.BuildRecord)
	}
	s.builds[build.RunID][build.BuildLink] = *build
	return nil
}

// GetRun returns a run by ID.
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*contracts.BuildRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, notFound(runID)
	}
	out := copyRun(run)
	return &out, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]contracts.BuildRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]contracts.BuildRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, copyRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ListBuilds returns the builds of a run ordered by architecture.
func (s *MemoryStore) ListBuilds(ctx context.Context, runID string) ([]contracts.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, notFound(runID)
	}

	builds := make([]contracts.BuildRecord, 0, len(s.builds[runID]))
	for _, b := range s.builds[runID] {
		builds = append(builds, b)
	}
	sort.Slice(builds, func(i, j int) bool {
		if builds[i].ArchTag != builds[j].ArchTag {
			return builds[i].ArchTag < builds[j].ArchTag
		}
		return builds[i].BuildLink < builds[j].BuildLink
	})
	return builds, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func copyRun(run *contracts.BuildRun) contracts.BuildRun {
	out := *run
	out.Architectures = append([]string(nil), run.Architectures...)
	return out
}
