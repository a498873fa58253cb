package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/canonical/rocks-toolbox/src/contracts"
)

func newRun(id string, started time.Time) *contracts.BuildRun {
	return &contracts.BuildRun{
		RunID:         id,
		RockName:      "hello",
		Architectures: []string{"amd64", "arm64"},
		Series:        "jammy",
		Status:        contracts.RunRunning,
		StartedAt:     started,
	}
}

func TestMemoryStore_RunLifecycle(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := newRun("run-1", started)

	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	// the store keeps its own copy
	run.Architectures[0] = "mutated"

	run.Repository = "~rocker/+git/rockcraft-lpci-hello-1709294400"
	run.CommitSHA1 = "0123456789abcdef0123456789abcdef01234567"
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	finished := started.Add(20 * time.Minute)
	if err := store.FinishRun(ctx, "run-1", contracts.RunSucceeded, finished); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != contracts.RunSucceeded || !got.Finished() {
		t.Errorf("Expected finished succeeded run, got status %q", got.Status)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
	if got.Repository != run.Repository || got.CommitSHA1 != run.CommitSHA1 {
		t.Errorf("UpdateRun not applied: %+v", got)
	}
	if got.Architectures[0] != "amd64" {
		t.Errorf("store shares the caller's slice: %v", got.Architectures)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun error = %v, want ErrNotFound", err)
	}
	if err := store.FinishRun(ctx, "missing", contracts.RunError, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishRun error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateRun(ctx, &contracts.BuildRun{RunID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateRun error = %v, want ErrNotFound", err)
	}
	if err := store.RecordBuild(ctx, &contracts.BuildRecord{RunID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordBuild error = %v, want ErrNotFound", err)
	}
	if _, err := store.ListBuilds(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListBuilds error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_RecordBuildUpserts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateRun(ctx, newRun("run-1", time.Now()))

	records := []contracts.BuildRecord{
		{RunID: "run-1", BuildLink: "/b/2", ArchTag: "arm64", State: "Currently building"},
		{RunID: "run-1", BuildLink: "/b/1", ArchTag: "amd64", State: "Needs building"},
		{RunID: "run-1", BuildLink: "/b/1", ArchTag: "amd64", State: "Successfully built", Terminal: true, Successful: true},
	}
	for i := range records {
		if err := store.RecordBuild(ctx, &records[i]); err != nil {
			t.Fatalf("RecordBuild failed: %v", err)
		}
	}

	builds, err := store.ListBuilds(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("Expected 2 builds, got %d", len(builds))
	}
	if builds[0].ArchTag != "amd64" || builds[0].State != "Successfully built" || !builds[0].Successful {
		t.Errorf("amd64 build not upserted: %+v", builds[0])
	}
	if builds[1].ArchTag != "arm64" {
		t.Errorf("Expected builds ordered by arch, got %+v", builds)
	}
}

func TestMemoryStore_ListRuns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		store.CreateRun(ctx, newRun(id, base.Add(time.Duration(i)*time.Hour)))
	}
	// duplicate create is ignored
	store.CreateRun(ctx, newRun("old", base.Add(10*time.Hour)))

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "middle" {
		t.Errorf("ListRuns(2) = %v", runIDs(runs))
	}

	all, _ := store.ListRuns(ctx, 0)
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func runIDs(runs []contracts.BuildRun) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	return ids
}
