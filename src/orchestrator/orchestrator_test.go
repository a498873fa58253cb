package orchestrator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/canonical/rocks-toolbox/src/clock"
	"github.com/canonical/rocks-toolbox/src/contracts"
	"github.com/canonical/rocks-toolbox/src/distroinfo"
	"github.com/canonical/rocks-toolbox/src/logger"
	"github.com/canonical/rocks-toolbox/src/manifest"
	"github.com/canonical/rocks-toolbox/src/provider"
	"github.com/canonical/rocks-toolbox/src/store"
)

const helloManifest = `name: hello
version: "1.0"
base: ubuntu@22.04
platforms:
  amd64:
  arm64:
    build-for: arm64
parts:
  hello:
    plugin: nil
`

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

type runFixture struct {
	fake       *fakeProvider
	orch       *Orchestrator
	store      *store.MemoryStore
	projectDir string
	bare       string
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	requireGit(t)

	projectDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(projectDir, manifest.DefaultPath), []byte(helloManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	bare := filepath.Join(t.TempDir(), "remote.git")
	if out, err := exec.Command("git", "init", "--bare", bare).CombinedOutput(); err != nil {
		t.Fatalf("git init --bare failed: %v: %s", err, out)
	}

	fake := newFakeProvider("amd64", "arm64")
	for _, arch := range fake.archs {
		fake.states[arch] = []string{"Currently building", "Successfully built"}
		fake.artifacts[arch] = [][]string{{rockURL(arch)}}
		fake.files[rockURL(arch)] = []byte("rock " + arch)
	}

	table, err := distroinfo.Embedded()
	if err != nil {
		t.Fatalf("Embedded failed: %v", err)
	}

	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	orch := New(fake, Options{ProjectDir: projectDir, LogDir: t.TempDir()}, &logger.SilentLogger{})
	orch.SetClock(clock.Fake(epoch))
	orch.SetDistroInfo(table)
	orch.SetRecorder(NewRecorder(st, nil, &logger.SilentLogger{}))
	orch.remoteURL = func(repo *provider.Repository, user, token string) (string, error) {
		return bare, nil
	}

	return &runFixture{fake: fake, orch: orch, store: st, projectDir: projectDir, bare: bare}
}

func (f *runFixture) storedStatus(t *testing.T) string {
	t.Helper()
	run, err := f.store.GetRun(context.Background(), f.orch.RunID())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	return run.Status
}

func TestOrchestrator_Run(t *testing.T) {
	f := newRunFixture(t)

	result, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Status != contracts.RunSucceeded {
		t.Errorf("status = %q", result.Status)
	}
	if result.Repository.Name != "rockcraft-lpci-hello-1736935200" {
		t.Errorf("repository = %q", result.Repository.Name)
	}
	if len(result.Artifacts) != 2 {
		t.Fatalf("artifacts = %v", result.Artifacts)
	}
	for _, arch := range []string{"amd64", "arm64"} {
		content, err := os.ReadFile(filepath.Join(f.projectDir, "hello_1.0_"+arch+".rock"))
		if err != nil || string(content) != "rock "+arch {
			t.Errorf("%s rock = %q, %v", arch, content, err)
		}
	}

	// The pushed tree carries the generated CI configuration.
	out, err := exec.Command("git", "--git-dir", f.bare, "show", "master:.launchpad.yaml").CombinedOutput()
	if err != nil {
		t.Fatalf("git show failed: %v: %s", err, out)
	}
	if !strings.Contains(string(out), "series: jammy") || !strings.Contains(string(out), "arm64") {
		t.Errorf(".launchpad.yaml = %s", out)
	}
	head, _ := exec.Command("git", "--git-dir", f.bare, "rev-parse", "master").Output()
	if strings.TrimSpace(string(head)) != result.CommitSHA1 {
		t.Errorf("pushed head %s, result commit %s", head, result.CommitSHA1)
	}

	if len(f.fake.deleted) != 1 {
		t.Errorf("repository not cleaned up: deleted = %v", f.fake.deleted)
	}
	if got := f.storedStatus(t); got != contracts.RunSucceeded {
		t.Errorf("stored status = %q", got)
	}
}

func TestOrchestrator_RunPushFailure(t *testing.T) {
	f := newRunFixture(t)
	f.orch.remoteURL = func(repo *provider.Repository, user, token string) (string, error) {
		return filepath.Join(t.TempDir(), "missing.git"), nil
	}

	result, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("push failure should not fail the run: %v", err)
	}
	if result.Status != contracts.RunPushFailed {
		t.Errorf("status = %q", result.Status)
	}
	if len(f.fake.deleted) != 1 {
		t.Errorf("repository not cleaned up after push failure: %v", f.fake.deleted)
	}
	if f.fake.reportCalls != 0 {
		t.Error("polled after a failed push")
	}
}

func TestOrchestrator_RunBuildFailureKeepsRepository(t *testing.T) {
	f := newRunFixture(t)
	f.fake.states["arm64"] = []string{"Failed to build"}

	result, err := f.orch.Run(context.Background())
	if !errors.Is(err, provider.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed, got %v", err)
	}
	if result.Status != contracts.RunBuildFailed {
		t.Errorf("status = %q", result.Status)
	}
	if len(f.fake.deleted) != 0 {
		t.Errorf("repository deleted after build failure: %v", f.fake.deleted)
	}
	if got := f.storedStatus(t); got != contracts.RunBuildFailed {
		t.Errorf("stored status = %q", got)
	}
}

func TestOrchestrator_RunNoSuccessfulBuilds(t *testing.T) {
	f := newRunFixture(t)
	f.fake.states["amd64"] = []string{"Failed to build"}
	f.fake.states["arm64"] = []string{"Cancelled build"}
	f.orch.opts.AllowBuildFailures = true

	result, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != contracts.RunNoBuilds {
		t.Errorf("status = %q", result.Status)
	}
	if len(f.fake.artifactCalls) != 0 {
		t.Error("fetched artifacts without successful builds")
	}
}

func TestOrchestrator_RunMissingManifest(t *testing.T) {
	orch := New(newFakeProvider(), Options{ProjectDir: t.TempDir()}, &logger.SilentLogger{})

	_, err := orch.Run(context.Background())
	if !errors.Is(err, manifest.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}
