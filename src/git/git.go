// Package git provides typed access to the git CLI for the scratch
// repository pushed to the remote build service. All commands target a
// specific directory via the -C flag.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Identity used for the single snapshot commit. The commit is throwaway, so
// it does not depend on the user's git configuration.
const (
	CommitterName  = "rockcraft-lpci"
	CommitterEmail = "rockcraft-lpci@localhost"
)

// Repository represents a git working tree at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := r.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, stderr)
	}
	return stdout, nil
}

func (r *Repository) run(ctx context.Context, args ...string) (string, string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

// Init creates the repository with the given initial branch.
func (r *Repository) Init(ctx context.Context, branch string) error {
	_, err := r.Run(ctx, "init", "--quiet", "--initial-branch", branch)
	return err
}

// AddAll stages every file in the working tree.
func (r *Repository) AddAll(ctx context.Context) error {
	_, err := r.Run(ctx, "add", "-A")
	return err
}

// Commit records the staged tree with the fixed snapshot identity.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx,
		"-c", "user.name="+CommitterName,
		"-c", "user.email="+CommitterEmail,
		"-c", "commit.gpgsign=false",
		"commit", "--quiet", "--allow-empty", "-m", message)
	return err
}

// Checkout switches to branch.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", branch)
	return err
}

// HeadCommit returns the SHA1 of HEAD.
func (r *Repository) HeadCommit(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// AddRemote adds a remote. The URL may embed credentials, so it is kept out
// of error messages.
func (r *Repository) AddRemote(ctx context.Context, name, url string) error {
	if _, stderr, err := r.run(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("git remote add %s in %s: %w (stderr: %s)", name, r.dir, err, redactURL(stderr, url))
	}
	return nil
}

// Push pushes refspec to remote.
func (r *Repository) Push(ctx context.Context, remote, refspec string, redact ...string) error {
	if _, stderr, err := r.run(ctx, "push", "--quiet", remote, refspec); err != nil {
		for _, secret := range redact {
			stderr = redactURL(stderr, secret)
		}
		return fmt.Errorf("git push %s %s in %s: %w (stderr: %s)", remote, refspec, r.dir, err, stderr)
	}
	return nil
}

func redactURL(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
