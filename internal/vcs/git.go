// Package vcs reads the git revision a dataset file was taken from.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Revision identifies the committed state of a file.
type Revision struct {
	Root   string
	Commit string
	// Dirty is true when the file differs from the commit.
	Dirty bool
}

// gitRunner executes git commands.
type gitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// execGitRunner invokes git via the system binary.
type execGitRunner struct{}

// Run executes a git command and returns trimmed stdout.
func (execGitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "no stderr"
		}
		return "", fmt.Errorf("git %s: %w (%s)", strings.Join(args, " "), err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client coordinates git operations and allows dependency injection.
type Client struct {
	runner gitRunner
}

// NewClient constructs a git client with an optional runner override.
func NewClient(runner gitRunner) Client {
	if runner == nil {
		runner = execGitRunner{}
	}
	return Client{runner: runner}
}

var defaultClient = NewClient(nil)

// DiscoverRepoRoot resolves the git root containing dir.
func DiscoverRepoRoot(ctx context.Context, dir string) (string, error) {
	return defaultClient.DiscoverRepoRoot(ctx, dir)
}

// FileRevision reports the revision of the repository holding path.
func FileRevision(ctx context.Context, path string) (Revision, error) {
	return defaultClient.FileRevision(ctx, path)
}

// DiscoverRepoRoot resolves the git root containing dir.
func (c Client) DiscoverRepoRoot(ctx context.Context, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("discover git root: directory is empty")
	}
	root, err := c.runner.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("discover git root: %w", err)
	}
	return root, nil
}

// FileRevision reports HEAD of the repository holding path and whether path
// has uncommitted changes.
func (c Client) FileRevision(ctx context.Context, path string) (Revision, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Revision{}, fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(abs)
	root, err := c.DiscoverRepoRoot(ctx, dir)
	if err != nil {
		return Revision{}, err
	}
	commit, err := c.runner.Run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	status, err := c.runner.Run(ctx, dir, "status", "--porcelain", "--", filepath.Base(abs))
	if err != nil {
		return Revision{}, fmt.Errorf("check dirty state: %w", err)
	}
	return Revision{
		Root:   root,
		Commit: commit,
		Dirty:  strings.TrimSpace(status) != "",
	}, nil
}
