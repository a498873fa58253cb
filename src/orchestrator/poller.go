package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/canonical/rocks-toolbox/src/clock"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/provider"
	"github.com/canonical/rocks-toolbox/src/sanitize"
)

const (
	// DefaultShortWait is the pause while the service has not listed every build yet.
	DefaultShortWait = 5 * time.Second
	// DefaultLongWait is the pause between passes over the listed builds.
	DefaultLongWait = 30 * time.Second
	// failureTailLines is how much of a failed build log is echoed.
	failureTailLines = 20
)

// PollerConfig configures a Poller.
type PollerConfig struct {
	// TargetCount is the number of builds expected, one per architecture.
	TargetCount        int
	Timeout            time.Duration
	AllowBuildFailures bool
	// LogDir receives one file per finished build. Defaults to os.TempDir().
	LogDir    string
	ShortWait time.Duration
	LongWait  time.Duration
}

// Poller waits for the builds triggered by a pushed commit.
type Poller struct {
	provider provider.Provider
	cfg      PollerConfig
	clock    clock.Clock
	log      logger.Logger
	recorder *Recorder
	runID    string
}

// pollState tracks one Wait call.
type pollState struct {
	target     int
	finished   map[string]bool
	successful []*provider.Build
	deadline   time.Time
}

// NewPoller creates a poller. Zero waits fall back to the defaults.
func NewPoller(p provider.Provider, cfg PollerConfig, clk clock.Clock, log logger.Logger) *Poller {
	if cfg.ShortWait <= 0 {
		cfg.ShortWait = DefaultShortWait
	}
	if cfg.LongWait <= 0 {
		cfg.LongWait = DefaultLongWait
	}
	if cfg.LogDir == "" {
		cfg.LogDir = os.TempDir()
	}
	return &Poller{provider: p, cfg: cfg, clock: clk, log: log}
}

// WithRecorder reports every observed build state for runID to r.
func (p *Poller) WithRecorder(r *Recorder, runID string) *Poller {
	p.recorder = r
	p.runID = runID
	return p
}

// Wait polls until every build of commit is terminal and returns the
// successful ones in the order the service listed them. A failed build
// (unless failures are allowed) or an expired deadline cancels guard so the
// repository survives for inspection.
func (p *Poller) Wait(ctx context.Context, repo *provider.Repository, commit string, guard *CleanupGuard) ([]*provider.Build, error) {
	state := &pollState{
		target:   p.cfg.TargetCount,
		finished: make(map[string]bool),
		deadline: p.clock.Now().Add(p.cfg.Timeout),
	}

	for {
		if p.clock.Now().After(state.deadline) {
			guard.Cancel()
			return nil, fmt.Errorf("%w after %s: %d/%d builds finished",
				provider.ErrBuildTimeout, p.cfg.Timeout, len(state.finished), state.target)
		}

		reports, err := p.provider.StatusReports(ctx, repo, commit)
		if err != nil {
			return nil, fmt.Errorf("failed to list status reports: %w", err)
		}

		if len(reports) != state.target {
			p.log.Warn("Need %d builds but Launchpad only listed %d so far", state.target, len(reports))
			if err := clock.Sleep(ctx, p.clock, p.cfg.ShortWait); err != nil {
				return nil, err
			}
			continue
		}

		for _, report := range reports {
			if state.finished[report.CIBuildLink] {
				continue
			}
			if err := p.observe(ctx, state, report, guard); err != nil {
				return nil, err
			}
		}

		if len(state.finished) >= len(reports) {
			return state.successful, nil
		}

		p.log.Info("%d/%d builds finished, waiting", len(state.finished), state.target)
		if err := clock.Sleep(ctx, p.clock, p.cfg.LongWait); err != nil {
			return nil, err
		}
	}
}

func (p *Poller) observe(ctx context.Context, state *pollState, report provider.StatusReport, guard *CleanupGuard) error {
	build, err := p.provider.LoadBuild(ctx, report.CIBuildLink)
	if err != nil {
		return fmt.Errorf("failed to load build %s: %w", report.CIBuildLink, err)
	}

	if !build.IsTerminal() {
		p.log.Info("Build for %s is %s", build.Arch(), build.State)
		p.recorder.BuildObserved(ctx, p.runID, build, "")
		return nil
	}

	state.finished[report.CIBuildLink] = true
	p.log.Info("Build for %s finished: %s", build.Arch(), build.State)

	content, logPath := p.saveLog(ctx, build)
	p.recorder.BuildObserved(ctx, p.runID, build, logPath)

	if build.IsSuccess() {
		state.successful = append(state.successful, build)
		return nil
	}

	p.logFailure(build, content)
	if p.cfg.AllowBuildFailures {
		p.log.Error("Build for %s failed. Continuing", build.Arch())
		return nil
	}

	guard.Cancel()
	return fmt.Errorf("%w: %s build %q ended in state %q (%s)",
		provider.ErrBuildFailed, build.Arch(), build.Title, build.State, build.WebLink)
}

// saveLog writes the build log to the log directory. Failures are logged
// and never stop polling.
func (p *Poller) saveLog(ctx context.Context, build *provider.Build) (string, string) {
	if build.LogURL == "" {
		p.log.Warn("Build for %s has no build log", build.Arch())
		return "", ""
	}

	content, err := p.provider.FetchBuildLog(ctx, build)
	if err != nil {
		p.log.Warn("Failed to fetch build log for %s: %v", build.Arch(), err)
		return "", ""
	}

	f, err := os.CreateTemp(p.cfg.LogDir, fmt.Sprintf("lpci-build-%s-*.log", build.Arch()))
	if err != nil {
		p.log.Warn("Failed to save build log for %s: %v", build.Arch(), err)
		return content, ""
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		p.log.Warn("Failed to save build log for %s: %v", build.Arch(), err)
		return content, ""
	}
	p.log.Info("Build log for %s saved to %s", build.Arch(), f.Name())
	return content, f.Name()
}

func (p *Poller) logFailure(build *provider.Build, content string) {
	p.log.Error("Build for %s failed: %s", build.Arch(), build.WebLink)
	for _, line := range sanitize.Tail(content, failureTailLines) {
		p.log.Error("  %s", line)
	}
}
