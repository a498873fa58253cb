// Package contracts defines the records and events shared by the build
// orchestrator, the run store and the status display.
package contracts

import "time"

// Run statuses.
const (
	RunRunning     = "running"
	RunSucceeded   = "succeeded"
	RunNoBuilds    = "no-builds"
	RunPushFailed  = "push-failed"
	RunBuildFailed = "build-failed"
	RunTimedOut    = "timed-out"
	RunError       = "error"
)

// Event kinds.
const (
	EventRunStarted    = "run_started"
	EventBuildUpdated  = "build_updated"
	EventArtifactSaved = "artifact_saved"
	EventRunFinished   = "run_finished"
)

// BuildRun is one invocation of the remote build orchestrator.
type BuildRun struct {
	// Unique identifier.
	RunID string `json:"run_id"`
	// Name of the rock from rockcraft.yaml.
	RockName string `json:"rock_name"`
	// Path of the scratch repository, e.g. "~user/+git/rockcraft-lpci-hello-1700000000".
	Repository string `json:"repository"`
	// Browser link to the scratch repository.
	WebLink string `json:"web_link,omitempty"`
	// Commit that was pushed and built.
	CommitSHA1 string `json:"commit_sha1,omitempty"`
	// Architectures requested.
	Architectures []string `json:"architectures"`
	// Ubuntu series the builds run on.
	Series string `json:"series"`
	// One of the Run* statuses.
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	// Zero while the run is in progress.
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the run reached a final status.
func (r *BuildRun) Finished() bool {
	return r.Status != "" && r.Status != RunRunning
}

// BuildRecord is the latest known state of one remote build within a run.
type BuildRecord struct {
	RunID string `json:"run_id"`
	// API link of the build; unique within a run.
	BuildLink  string `json:"build_link"`
	Title      string `json:"title"`
	ArchTag    string `json:"arch_tag"`
	State      string `json:"state"`
	WebLink    string `json:"web_link,omitempty"`
	Terminal   bool   `json:"terminal"`
	Successful bool   `json:"successful"`
	// Local path of the saved build log, if any.
	LogPath   string    `json:"log_path,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildEvent is published for every observable change of a run.
type BuildEvent struct {
	// One of the Event* kinds.
	Kind  string       `json:"kind"`
	RunID string       `json:"run_id"`
	Run   *BuildRun    `json:"run,omitempty"`
	Build *BuildRecord `json:"build,omitempty"`
	// Local path of a downloaded artifact, for EventArtifactSaved.
	Artifact  string    `json:"artifact,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
