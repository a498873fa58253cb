package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/canonical/rocks-toolbox/src/clock"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/lpci"
	"github.com/canonical/rocks-toolbox/src/provider"
)

const (
	DefaultArtifactAttempts = 3
	DefaultArtifactDelay    = 30 * time.Second
	DefaultArtifactBackoff  = 2.0
)

// ArtifactConfig configures an ArtifactFetcher.
type ArtifactConfig struct {
	// Dir receives the downloaded files. Defaults to the working directory.
	Dir      string
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// ArtifactFetcher downloads the rocks produced by successful builds.
type ArtifactFetcher struct {
	provider provider.Provider
	cfg      ArtifactConfig
	clock    clock.Clock
	log      logger.Logger
	recorder *Recorder
	runID    string
}

// NewArtifactFetcher creates a fetcher. Zero fields fall back to the defaults.
func NewArtifactFetcher(p provider.Provider, cfg ArtifactConfig, clk clock.Clock, log logger.Logger) *ArtifactFetcher {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultArtifactAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultArtifactDelay
	}
	if cfg.Backoff < 1 {
		cfg.Backoff = DefaultArtifactBackoff
	}
	return &ArtifactFetcher{provider: p, cfg: cfg, clock: clk, log: log}
}

// WithRecorder announces every saved artifact of runID to r.
func (f *ArtifactFetcher) WithRecorder(r *Recorder, runID string) *ArtifactFetcher {
	f.recorder = r
	f.runID = runID
	return f
}

// Fetch downloads the artifacts of every build and returns the written paths.
func (f *ArtifactFetcher) Fetch(ctx context.Context, builds []*provider.Build) ([]string, error) {
	var saved []string
	for _, build := range builds {
		urls, err := f.rockURLs(ctx, build)
		if err != nil {
			return saved, err
		}

		for _, u := range urls {
			dest, err := f.download(ctx, u)
			if err != nil {
				return saved, err
			}
			f.log.Info("Saved %s", dest)
			f.recorder.ArtifactSaved(ctx, f.runID, dest)
			saved = append(saved, dest)
		}
	}
	return saved, nil
}

// rockURLs lists the rock artifacts of build, retrying while the service has
// not published them yet.
func (f *ArtifactFetcher) rockURLs(ctx context.Context, build *provider.Build) ([]string, error) {
	var rocks []string
	b := backoff{attempts: f.cfg.Attempts, delay: f.cfg.Delay, factor: f.cfg.Backoff}

	err := retry(ctx, f.clock, b, isMissingArtifacts, func() error {
		urls, err := f.provider.ArtifactURLs(ctx, build)
		if err != nil {
			return err
		}

		rocks = rocks[:0]
		for _, u := range urls {
			if isRockArtifact(u) {
				rocks = append(rocks, u)
			}
		}
		if len(rocks) == 0 {
			f.log.Warn("No %s artifacts listed for %s yet", lpci.ArtifactGlob, build.Arch())
			return fmt.Errorf("%w: %s build %q", provider.ErrMissingArtifacts, build.Arch(), build.Title)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rocks, nil
}

func (f *ArtifactFetcher) download(ctx context.Context, rawURL string) (string, error) {
	name, err := artifactName(rawURL)
	if err != nil {
		return "", err
	}

	data, err := f.provider.DownloadArtifact(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}

	dest := filepath.Join(f.cfg.Dir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

func isMissingArtifacts(err error) bool {
	return errors.Is(err, provider.ErrMissingArtifacts)
}

func isRockArtifact(rawURL string) bool {
	name, err := artifactName(rawURL)
	return err == nil && strings.Contains(name, ".rock")
}

// artifactName returns the file name at the end of an artifact URL.
func artifactName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("artifact URL %q has no file name", rawURL)
	}
	return name, nil
}
