package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canonical/rocks-toolbox/src/provider"
)

const fakeRoot = "https://api.launchpad.test/devel"

type tokenRequest struct {
	description string
	scopes      []string
	expires     time.Time
}

// fakeProvider replays scripted Launchpad responses. Scripted sequences
// repeat their last entry once exhausted.
type fakeProvider struct {
	mu sync.Mutex

	archs []string
	// reportSeq scripts StatusReports; nil means every arch is listed.
	reportSeq   [][]string
	reportCalls int
	// states scripts the buildstate per arch.
	states     map[string][]string
	loads      map[string]int
	logs       map[string]string
	logFetches map[string]int
	// artifacts scripts ArtifactURLs per arch.
	artifacts     map[string][][]string
	artifactCalls map[string]int
	files         map[string][]byte

	repos   map[string]*provider.Repository
	deleted []string
	tokens  []tokenRequest
}

func newFakeProvider(archs ...string) *fakeProvider {
	return &fakeProvider{
		archs:         archs,
		states:        make(map[string][]string),
		loads:         make(map[string]int),
		logs:          make(map[string]string),
		logFetches:    make(map[string]int),
		artifacts:     make(map[string][][]string),
		artifactCalls: make(map[string]int),
		files:         make(map[string][]byte),
		repos:         make(map[string]*provider.Repository),
	}
}

func buildLink(arch string) string {
	return fakeRoot + "/~rocker/+git/hello/+build/" + arch
}

func archOf(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

func pick[T any](seq []T, n int) T {
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n]
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Me(ctx context.Context) (*provider.Person, error) {
	return &provider.Person{Name: "rocker", SelfLink: fakeRoot + "/~rocker"}, nil
}

func (f *fakeProvider) CreateRepository(ctx context.Context, owner *provider.Person, name string) (*provider.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "~" + owner.Name + "/+git/" + name
	repo := &provider.Repository{
		Name:     name,
		Path:     path,
		SelfLink: fakeRoot + "/" + path,
		WebLink:  "https://code.launchpad.test/" + path,
	}
	f.repos[path] = repo
	return repo, nil
}

func (f *fakeProvider) GetRepository(ctx context.Context, path string) (*provider.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.repos[path]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return repo, nil
}

func (f *fakeProvider) DeleteRepository(ctx context.Context, repo *provider.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.repos, repo.Path)
	f.deleted = append(f.deleted, repo.Path)
	return nil
}

func (f *fakeProvider) IssueAccessToken(ctx context.Context, repo *provider.Repository, description string, scopes []string, expires time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, tokenRequest{description: description, scopes: scopes, expires: expires})
	return "t0k3n", nil
}

func (f *fakeProvider) StatusReports(ctx context.Context, repo *provider.Repository, commitSHA1 string) ([]provider.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	listed := f.archs
	if f.reportSeq != nil {
		listed = pick(f.reportSeq, f.reportCalls)
	}
	f.reportCalls++

	reports := make([]provider.StatusReport, 0, len(listed))
	for _, arch := range listed {
		reports = append(reports, provider.StatusReport{Title: "build-rock " + arch, CIBuildLink: buildLink(arch)})
	}
	return reports, nil
}

func (f *fakeProvider) LoadBuild(ctx context.Context, link string) (*provider.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	arch := archOf(link)
	states, ok := f.states[arch]
	if !ok {
		return nil, fmt.Errorf("unexpected build %s", link)
	}
	state := pick(states, f.loads[arch])
	f.loads[arch]++

	build := &provider.Build{
		Link:                 link,
		Title:                "hello " + arch,
		ArchTag:              arch,
		State:                state,
		WebLink:              "https://launchpad.test/builds/" + arch,
		DistroArchSeriesLink: fakeRoot + "/ubuntu/jammy/" + arch,
	}
	if _, ok := f.logs[arch]; ok {
		build.LogURL = link + "/+files/buildlog.txt"
	}
	return build, nil
}

func (f *fakeProvider) FetchBuildLog(ctx context.Context, build *provider.Build) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arch := archOf(build.Link)
	f.logFetches[arch]++
	return f.logs[arch], nil
}

func (f *fakeProvider) ArtifactURLs(ctx context.Context, build *provider.Build) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arch := archOf(build.Link)
	seq, ok := f.artifacts[arch]
	n := f.artifactCalls[arch]
	f.artifactCalls[arch]++
	if !ok {
		return nil, nil
	}
	return pick(seq, n), nil
}

func (f *fakeProvider) DownloadArtifact(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("API request failed with status 404: %s", url)
	}
	return data, nil
}

func (f *fakeProvider) loadCount(arch string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[arch]
}
