package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/canonical/rocks-toolbox/src/broker"
	"github.com/canonical/rocks-toolbox/src/contracts"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/provider"
	"github.com/canonical/rocks-toolbox/src/store"
)

func testRun(id string) *contracts.BuildRun {
	return &contracts.BuildRun{
		RunID:         id,
		RockName:      "hello",
		Architectures: []string{"amd64", "arm64"},
		Series:        "jammy",
		Status:        contracts.RunRunning,
		StartedAt:     epoch,
	}
}

func receiveEvent(t *testing.T, ch <-chan broker.Message) contracts.BuildEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var event contracts.BuildEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return contracts.BuildEvent{}
}

func TestRecorder_StoreAndEvents(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	events, err := brk.Subscribe(ctx, contracts.TopicBuildEvents, "test")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	rec := NewRecorder(st, brk, &logger.SilentLogger{})
	run := testRun("run-1")

	rec.RunStarted(ctx, run)
	if event := receiveEvent(t, events); event.Kind != contracts.EventRunStarted || event.RunID != "run-1" {
		t.Errorf("first event = %+v", event)
	}

	build := &provider.Build{
		Link:                 buildLink("arm64"),
		Title:                "hello arm64",
		State:                "Successfully built",
		DistroArchSeriesLink: fakeRoot + "/ubuntu/jammy/arm64",
	}
	rec.BuildObserved(ctx, "run-1", build, "/tmp/lpci-build-arm64-1.log")
	event := receiveEvent(t, events)
	if event.Kind != contracts.EventBuildUpdated || event.Build == nil {
		t.Fatalf("second event = %+v", event)
	}
	if event.Build.ArchTag != "arm64" || !event.Build.Successful {
		t.Errorf("build record = %+v", event.Build)
	}

	rec.ArtifactSaved(ctx, "run-1", "hello_1.0_arm64.rock")
	if event := receiveEvent(t, events); event.Artifact != "hello_1.0_arm64.rock" {
		t.Errorf("artifact event = %+v", event)
	}

	run.Status = contracts.RunSucceeded
	run.FinishedAt = epoch.Add(time.Minute)
	rec.RunFinished(ctx, run)
	if event := receiveEvent(t, events); event.Kind != contracts.EventRunFinished {
		t.Errorf("last event = %+v", event)
	}

	stored, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.Status != contracts.RunSucceeded || !stored.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("stored run = %+v", stored)
	}
	builds, _ := st.ListBuilds(ctx, "run-1")
	if len(builds) != 1 || builds[0].LogPath != "/tmp/lpci-build-arm64-1.log" {
		t.Errorf("stored builds = %+v", builds)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var rec *Recorder
	ctx := context.Background()

	rec.RunStarted(ctx, testRun("run-1"))
	rec.RunUpdated(ctx, testRun("run-1"))
	rec.BuildObserved(ctx, "run-1", &provider.Build{}, "")
	rec.ArtifactSaved(ctx, "run-1", "x.rock")
	rec.RunFinished(ctx, testRun("run-1"))
}

func TestRecorder_StoreErrorsAreNotFatal(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	rec := NewRecorder(st, nil, &logger.SilentLogger{})
	// Unknown run: every store call fails and is only logged.
	rec.RunUpdated(context.Background(), testRun("missing"))
	rec.BuildObserved(context.Background(), "missing", &provider.Build{Link: "x"}, "")
	rec.RunFinished(context.Background(), testRun("missing"))
}
