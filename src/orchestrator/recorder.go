package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/canonical/rocks-toolbox/src/broker"
	"github.com/canonical/rocks-toolbox/src/contracts"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/provider"
	"github.com/canonical/rocks-toolbox/src/store"
)

// Recorder persists run history and publishes build events. Either side may
// be nil. Recording failures are logged and never fail the run.
type Recorder struct {
	store  store.Store
	broker broker.Broker
	log    logger.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing to st and publishing to brk.
func NewRecorder(st store.Store, brk broker.Broker, log logger.Logger) *Recorder {
	return &Recorder{store: st, broker: brk, log: log, now: time.Now}
}

// RunStarted records a new run.
func (r *Recorder) RunStarted(ctx context.Context, run *contracts.BuildRun) {
	if r == nil {
		return
	}
	if r.store != nil {
		if err := r.store.CreateRun(ctx, run); err != nil {
			r.log.Warn("Failed to record run %s: %v", run.RunID, err)
		}
	}
	r.publish(ctx, &contracts.BuildEvent{Kind: contracts.EventRunStarted, RunID: run.RunID, Run: run})
}

// RunUpdated records a change of repository, commit or status.
func (r *Recorder) RunUpdated(ctx context.Context, run *contracts.BuildRun) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.log.Warn("Failed to update run %s: %v", run.RunID, err)
	}
}

// BuildObserved records the latest state of a build.
func (r *Recorder) BuildObserved(ctx context.Context, runID string, build *provider.Build, logPath string) {
	if r == nil {
		return
	}
	record := &contracts.BuildRecord{
		RunID:      runID,
		BuildLink:  build.Link,
		Title:      build.Title,
		ArchTag:    build.Arch(),
		State:      build.State,
		WebLink:    build.WebLink,
		Terminal:   build.IsTerminal(),
		Successful: build.IsSuccess(),
		LogPath:    logPath,
		UpdatedAt:  r.now(),
	}
	if r.store != nil {
		if err := r.store.RecordBuild(ctx, record); err != nil {
			r.log.Warn("Failed to record build %s: %v", build.Link, err)
		}
	}
	r.publish(ctx, &contracts.BuildEvent{Kind: contracts.EventBuildUpdated, RunID: runID, Build: record})
}

// ArtifactSaved announces a downloaded artifact.
func (r *Recorder) ArtifactSaved(ctx context.Context, runID, path string) {
	if r == nil {
		return
	}
	r.publish(ctx, &contracts.BuildEvent{Kind: contracts.EventArtifactSaved, RunID: runID, Artifact: path})
}

// RunFinished records the final status of a run.
func (r *Recorder) RunFinished(ctx context.Context, run *contracts.BuildRun) {
	if r == nil {
		return
	}
	if r.store != nil {
		if err := r.store.FinishRun(ctx, run.RunID, run.Status, run.FinishedAt); err != nil {
			r.log.Warn("Failed to finish run %s: %v", run.RunID, err)
		}
	}
	r.publish(ctx, &contracts.BuildEvent{Kind: contracts.EventRunFinished, RunID: run.RunID, Run: run})
}

func (r *Recorder) publish(ctx context.Context, event *contracts.BuildEvent) {
	if r.broker == nil {
		return
	}
	event.Timestamp = r.now()

	data, err := json.Marshal(event)
	if err != nil {
		r.log.Warn("Failed to encode %s event: %v", event.Kind, err)
		return
	}
	if err := r.broker.Publish(ctx, contracts.TopicBuildEvents, event.RunID, data); err != nil {
		r.log.Warn("Failed to publish %s event: %v", event.Kind, err)
	}
}
