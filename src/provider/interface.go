package provider

import (
	"context"
	"time"
)

// Provider defines the interface to a remote build service that builds
// pushed git repositories and reports per-architecture builds.
type Provider interface {
	// Name returns the provider name (e.g., "launchpad")
	Name() string

	// Me returns the authenticated account
	Me(ctx context.Context) (*Person, error)

	// CreateRepository creates a git repository owned by owner
	CreateRepository(ctx context.Context, owner *Person, name string) (*Repository, error)

	// GetRepository looks a repository up by path. Returns ErrNotFound if it does not exist.
	GetRepository(ctx context.Context, path string) (*Repository, error)

	// DeleteRepository deletes the repository
	DeleteRepository(ctx context.Context, repo *Repository) error

	// IssueAccessToken issues a token for the repository with the given scopes
	IssueAccessToken(ctx context.Context, repo *Repository, description string, scopes []string, expires time.Time) (string, error)

	// StatusReports lists the CI status reports attached to a commit
	StatusReports(ctx context.Context, repo *Repository, commitSHA1 string) ([]StatusReport, error)

	// LoadBuild retrieves the current state of a build
	LoadBuild(ctx context.Context, link string) (*Build, error)

	// FetchBuildLog retrieves raw log content for a build
	FetchBuildLog(ctx context.Context, build *Build) (string, error)

	// ArtifactURLs lists the files a build produced
	ArtifactURLs(ctx context.Context, build *Build) ([]string, error)

	// DownloadArtifact downloads artifact content
	DownloadArtifact(ctx context.Context, url string) ([]byte, error)
}
