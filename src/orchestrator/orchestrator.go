// Package orchestrator runs a rock build on Launchpad: it snapshots the
// project into a scratch repository, pushes it, waits for the CI builds of
// every architecture and downloads the resulting rocks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/rocks-toolbox/src/clock"
	"github.com/canonical/rocks-toolbox/src/contracts"
	"github.com/canonical/rocks-toolbox/src/distroinfo"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/lpci"
	"github.com/canonical/rocks-toolbox/src/manifest"
	"github.com/canonical/rocks-toolbox/src/project"
	"github.com/canonical/rocks-toolbox/src/provider"
)

var tracer = otel.Tracer("github.com/canonical/rocks-toolbox/src/orchestrator")

// DefaultTimeout bounds the wait for remote builds.
const DefaultTimeout = 3600 * time.Second

// Options configures a run.
type Options struct {
	// ProjectDir holds rockcraft.yaml. Defaults to the working directory.
	ProjectDir string
	// ManifestPath defaults to ProjectDir/rockcraft.yaml.
	ManifestPath string
	// OutputDir receives the rocks. Defaults to ProjectDir.
	OutputDir          string
	LogDir             string
	Timeout            time.Duration
	AllowBuildFailures bool
	// Exclude lists files never copied into the pushed snapshot.
	Exclude []string
}

// Result summarizes a run.
type Result struct {
	RunID      string
	Status     string
	Repository *provider.Repository
	CommitSHA1 string
	Builds     []*provider.Build
	Artifacts  []string
}

// Orchestrator drives one remote build.
type Orchestrator struct {
	provider provider.Provider
	opts     Options
	log      logger.Logger
	clock    clock.Clock
	distro   *distroinfo.Table
	recorder *Recorder
	runID    string

	// remoteURL overrides how the push URL is built.
	remoteURL func(repo *provider.Repository, user, token string) (string, error)
}

// New creates an orchestrator for p.
func New(p provider.Provider, opts Options, log logger.Logger) *Orchestrator {
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join(opts.ProjectDir, manifest.DefaultPath)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.ProjectDir
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Orchestrator{
		provider: p,
		opts:     opts,
		log:      log,
		clock:    clock.Real(),
		runID:    uuid.NewString(),
	}
}

// SetClock replaces the real clock.
func (o *Orchestrator) SetClock(c clock.Clock) { o.clock = c }

// SetRecorder records the run's progress to r.
func (o *Orchestrator) SetRecorder(r *Recorder) { o.recorder = r }

// SetDistroInfo sets the release table used to resolve the build series.
func (o *Orchestrator) SetDistroInfo(t *distroinfo.Table) { o.distro = t }

// RunID identifies this run in the store and in published events.
func (o *Orchestrator) RunID() string { return o.runID }

// Run performs the remote build. A failed push or a run without successful
// builds is logged and returns a nil error; build failures, timeouts and
// missing artifacts are returned.
func (o *Orchestrator) Run(ctx context.Context) (result *Result, err error) {
	ctx, span := tracer.Start(ctx, "lpci-build.run", trace.WithAttributes(attribute.String("run.id", o.runID)))
	defer func() { endSpan(span, err) }()

	result = &Result{RunID: o.runID, Status: contracts.RunError}

	m, err := manifest.Read(o.opts.ManifestPath)
	if err != nil {
		return result, err
	}
	archs, err := m.Architectures()
	if err != nil {
		return result, err
	}
	if o.distro == nil {
		if o.distro, err = distroinfo.Load(); err != nil {
			return result, err
		}
	}
	series, err := m.Series(o.distro, o.clock.Now())
	if err != nil {
		return result, err
	}
	span.SetAttributes(
		attribute.String("rock.name", m.Name),
		attribute.StringSlice("rock.architectures", archs),
		attribute.String("rock.series", series),
	)
	o.log.Info("Building rock %s on %s for %v", m.Name, series, archs)

	me, err := o.provider.Me(ctx)
	if err != nil {
		return result, err
	}

	snapshot, err := o.prepare(ctx, archs, series)
	if err != nil {
		return result, err
	}
	defer snapshot.Remove()

	repos := NewRepositoryManager(o.provider, o.clock, o.log)
	if o.remoteURL != nil {
		repos.remoteURL = o.remoteURL
	}
	repoName := RepositoryName(m.Name, o.clock.Now())
	repo, guard, err := repos.Create(ctx, me, repoName)
	if err != nil {
		return result, err
	}
	result.Repository = repo
	defer func() {
		if err := guard.Release(context.WithoutCancel(ctx)); err != nil {
			o.log.Warn("Failed to delete repository %s: %v", repo.Path, err)
		}
	}()

	run := &contracts.BuildRun{
		RunID:         o.runID,
		RockName:      m.Name,
		Repository:    repo.Path,
		WebLink:       repo.WebLink,
		Architectures: archs,
		Series:        series,
		Status:        contracts.RunRunning,
		StartedAt:     o.clock.Now(),
	}
	o.recorder.RunStarted(ctx, run)
	defer func() {
		run.Status = result.Status
		run.FinishedAt = o.clock.Now()
		o.recorder.RunFinished(context.WithoutCancel(ctx), run)
	}()

	token, err := repos.IssueToken(ctx, repo, m.Name, o.opts.Timeout)
	if err != nil {
		return result, err
	}

	commit, err := o.push(ctx, repos, snapshot, repo, me.Name, token, m.Name)
	if err != nil {
		o.log.Error("Failed to push the local repository to Launchpad: %v", err)
		result.Status = contracts.RunPushFailed
		return result, nil
	}
	result.CommitSHA1 = commit
	run.CommitSHA1 = commit
	o.recorder.RunUpdated(ctx, run)
	o.log.Info("Pushed commit %s, waiting for builds: %s", commit, repo.WebLink)

	builds, err := o.poll(ctx, repo, commit, len(archs), guard)
	if err != nil {
		result.Status = failureStatus(err)
		if guard.Cancelled() {
			o.log.Warn("Keeping repository %s for inspection: %s", repo.Path, repo.WebLink)
		}
		return result, err
	}
	result.Builds = builds

	if len(builds) == 0 {
		o.log.Error("No builds were successful! Nothing to fetch")
		result.Status = contracts.RunNoBuilds
		return result, nil
	}

	artifacts, err := o.fetch(ctx, builds)
	result.Artifacts = artifacts
	if err != nil {
		return result, err
	}

	result.Status = contracts.RunSucceeded
	return result, nil
}

func (o *Orchestrator) prepare(ctx context.Context, archs []string, series string) (snapshot *project.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "lpci-build.prepare")
	defer func() { endSpan(span, err) }()

	snapshot, err = project.Prepare(ctx, o.opts.ProjectDir, o.opts.Exclude)
	if err != nil {
		return nil, err
	}

	path, err := lpci.Write(snapshot.Dir, archs, series)
	if err != nil {
		snapshot.Remove()
		return nil, err
	}
	o.log.Debug("Wrote %s", path)
	return snapshot, nil
}

func (o *Orchestrator) push(ctx context.Context, repos *RepositoryManager, snapshot *project.Snapshot, repo *provider.Repository, user, token, rockName string) (commit string, err error) {
	ctx, span := tracer.Start(ctx, "lpci-build.push", trace.WithAttributes(attribute.String("repository.path", repo.Path)))
	defer func() { endSpan(span, err) }()

	return repos.Push(ctx, snapshot, repo, user, token, rockName)
}

func (o *Orchestrator) poll(ctx context.Context, repo *provider.Repository, commit string, target int, guard *CleanupGuard) (builds []*provider.Build, err error) {
	ctx, span := tracer.Start(ctx, "lpci-build.poll", trace.WithAttributes(attribute.Int("builds.target", target)))
	defer func() { endSpan(span, err) }()

	poller := NewPoller(o.provider, PollerConfig{
		TargetCount:        target,
		Timeout:            o.opts.Timeout,
		AllowBuildFailures: o.opts.AllowBuildFailures,
		LogDir:             o.opts.LogDir,
	}, o.clock, o.log).WithRecorder(o.recorder, o.runID)

	builds, err = poller.Wait(ctx, repo, commit, guard)
	span.SetAttributes(attribute.Int("builds.successful", len(builds)))
	return builds, err
}

func (o *Orchestrator) fetch(ctx context.Context, builds []*provider.Build) (paths []string, err error) {
	ctx, span := tracer.Start(ctx, "lpci-build.fetch-artifacts")
	defer func() { endSpan(span, err) }()

	fetcher := NewArtifactFetcher(o.provider, ArtifactConfig{Dir: o.opts.OutputDir}, o.clock, o.log).WithRecorder(o.recorder, o.runID)

	return fetcher.Fetch(ctx, builds)
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, provider.ErrBuildTimeout):
		return contracts.RunTimedOut
	case errors.Is(err, provider.ErrBuildFailed):
		return contracts.RunBuildFailed
	default:
		return contracts.RunError
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// String describes the result for the final log line.
func (r *Result) String() string {
	return fmt.Sprintf("run %s %s: %d build(s), %d artifact(s)", r.RunID, r.Status, len(r.Builds), len(r.Artifacts))
}
