// Package project turns the rock project directory into a fresh git
// repository that can be pushed to the remote build service.
package project

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/canonical/rocks-toolbox/src/git"
)

// Branch is the only branch of the snapshot repository.
const Branch = "master"

// Snapshot is a temporary copy of the project initialized as a git repository.
type Snapshot struct {
	Dir  string
	Repo *git.Repository
}

// Prepare copies srcDir into a new temporary directory, drops the project's
// own .git directory and any path listed in exclude, and runs git init.
// Exclusions are matched against absolute paths inside srcDir.
func Prepare(ctx context.Context, srcDir string, exclude []string) (*Snapshot, error) {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", srcDir, err)
	}

	dir, err := os.MkdirTemp("", "rockcraft-lpci-")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	snapshot := &Snapshot{Dir: dir, Repo: git.NewRepository(dir)}

	skip := make(map[string]bool, len(exclude))
	for _, path := range exclude {
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			skip[abs] = true
		}
	}

	if err := copyTree(absSrc, dir, skip); err != nil {
		snapshot.Remove()
		return nil, err
	}

	if err := snapshot.Repo.Init(ctx, Branch); err != nil {
		snapshot.Remove()
		return nil, err
	}
	return snapshot, nil
}

// Commit stages the whole snapshot and commits it on the snapshot branch.
func (s *Snapshot) Commit(ctx context.Context, message string) (string, error) {
	if err := s.Repo.AddAll(ctx); err != nil {
		return "", err
	}
	if err := s.Repo.Commit(ctx, message); err != nil {
		return "", err
	}
	if err := s.Repo.Checkout(ctx, Branch); err != nil {
		return "", err
	}
	return s.Repo.HeadCommit(ctx)
}

// Remove deletes the snapshot directory.
func (s *Snapshot) Remove() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}

func copyTree(src, dst string, skip map[string]bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == src {
			return nil
		}
		if skip[path] || (d.IsDir() && d.Name() == ".git") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		}
		// sockets, devices and pipes are not part of a rock project
		return nil
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
