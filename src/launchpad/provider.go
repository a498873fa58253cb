package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/canonical/rocks-toolbox/src/provider"
)

// Provider implements provider.Provider for Launchpad
type Provider struct {
	client *Client
}

// NewProvider creates a Launchpad provider for the given API root
func NewProvider(apiRoot string, creds *Credentials) *Provider {
	return &Provider{client: NewClient(apiRoot, creds)}
}

// Name returns "launchpad"
func (p *Provider) Name() string {
	return "launchpad"
}

// Me returns the authenticated Launchpad user
func (p *Provider) Me(ctx context.Context) (*provider.Person, error) {
	me, err := p.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to log in to Launchpad: %w", err)
	}
	return &provider.Person{
		Name:     me.Name,
		SelfLink: me.SelfLink,
		WebLink:  me.WebLink,
	}, nil
}

// CreateRepository creates ~owner/+git/name
func (p *Provider) CreateRepository(ctx context.Context, owner *provider.Person, name string) (*provider.Repository, error) {
	repo, err := p.client.NewGitRepository(ctx, owner.SelfLink, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository %s: %w", name, err)
	}
	return toRepository(repo, RepositoryPath(owner.Name, name)), nil
}

// GetRepository looks up a repository by path
func (p *Provider) GetRepository(ctx context.Context, path string) (*provider.Repository, error) {
	repo, err := p.client.GetGitRepositoryByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return toRepository(repo, path), nil
}

// DeleteRepository deletes the repository
func (p *Provider) DeleteRepository(ctx context.Context, repo *provider.Repository) error {
	if err := p.client.Delete(ctx, repo.SelfLink); err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", repo.Path, err)
	}
	return nil
}

// IssueAccessToken issues a repository access token
func (p *Provider) IssueAccessToken(ctx context.Context, repo *provider.Repository, description string, scopes []string, expires time.Time) (string, error) {
	token, err := p.client.IssueAccessToken(ctx, repo.SelfLink, description, scopes, expires)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token for %s: %w", repo.Path, err)
	}
	return token, nil
}

// StatusReports lists the CI status reports of a commit
func (p *Provider) StatusReports(ctx context.Context, repo *provider.Repository, commitSHA1 string) ([]provider.StatusReport, error) {
	lpReports, err := p.client.GetStatusReports(ctx, repo.SelfLink, commitSHA1)
	if err != nil {
		return nil, err
	}

	reports := make([]provider.StatusReport, 0, len(lpReports))
	for _, r := range lpReports {
		reports = append(reports, provider.StatusReport{
			Title:       r.Title,
			CIBuildLink: r.CIBuildLink,
			Result:      r.Result,
		})
	}
	return reports, nil
}

// LoadBuild retrieves the current state of a CI build
func (p *Provider) LoadBuild(ctx context.Context, link string) (*provider.Build, error) {
	b, err := p.client.GetCIBuild(ctx, link)
	if err != nil {
		return nil, err
	}

	build := &provider.Build{
		Link:                 b.SelfLink,
		Title:                b.Title,
		ArchTag:              b.ArchTag,
		State:                b.BuildState,
		LogURL:               b.BuildLogURL,
		WebLink:              b.WebLink,
		DistroArchSeriesLink: b.DistroArchSeriesLink,
	}
	if build.Link == "" {
		build.Link = link
	}
	if b.DateBuilt != nil {
		build.DateBuilt = *b.DateBuilt
	}
	return build, nil
}

// FetchBuildLog retrieves the build log
func (p *Provider) FetchBuildLog(ctx context.Context, build *provider.Build) (string, error) {
	if build.LogURL == "" {
		return "", fmt.Errorf("build %s has no log: %w", build.Title, provider.ErrNotFound)
	}
	data, err := p.client.Download(ctx, build.LogURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ArtifactURLs lists the files a build produced
func (p *Provider) ArtifactURLs(ctx context.Context, build *provider.Build) ([]string, error) {
	return p.client.GetArtifactURLs(ctx, build.Link)
}

// DownloadArtifact downloads artifact content
func (p *Provider) DownloadArtifact(ctx context.Context, url string) ([]byte, error) {
	return p.client.Download(ctx, url)
}

// RepositoryPath returns the Launchpad path of a personal git repository.
func RepositoryPath(owner, name string) string {
	return fmt.Sprintf("~%s/+git/%s", owner, name)
}

func toRepository(repo *GitRepository, path string) *provider.Repository {
	if repo.UniqueName != "" {
		path = repo.UniqueName
	}
	return &provider.Repository{
		Name:        repo.Name,
		Path:        path,
		SelfLink:    repo.SelfLink,
		WebLink:     repo.WebLink,
		GitHTTPSURL: repo.GitHTTPSURL,
	}
}
