// Package vcs fetches source trees from git remotes.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// VCS defines the version control operations `vendor fetch` needs.
type VCS interface {
	// Sync makes dir a shallow checkout of ref from remote. When paths are
	// given only those subtrees are checked out. dir is created if missing
	// and reused otherwise.
	Sync(ctx context.Context, remote, ref, dir string, paths ...string) error

	// Tags lists the remote's tags, optionally restricted to those
	// matching the glob patterns.
	Tags(ctx context.Context, remote string, patterns ...string) ([]string, error)
}

type gitVCS struct {
	git string
}

// GitOption configures the git implementation.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// NewGitVCS returns a VCS backed by the git command.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) ensureInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return g.run(ctx, dir, "init", "--quiet")
}

func (g *gitVCS) Sync(ctx context.Context, remote, ref, dir string, paths ...string) error {
	if err := g.ensureInit(ctx, dir); err != nil {
		return err
	}
	if len(paths) > 0 {
		args := append([]string{"sparse-checkout", "set", "--no-cone"}, paths...)
		if err := g.run(ctx, dir, args...); err != nil {
			return fmt.Errorf("sparse-checkout: %w", err)
		}
	}
	if err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}
	if err := g.run(ctx, dir, "checkout", "--quiet", "--force", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) Tags(ctx context.Context, remote string, patterns ...string) ([]string, error) {
	args := append([]string{"ls-remote", "--tags", "--refs", remote}, patterns...)
	output, err := g.output(ctx, "", args...)
	if err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}

	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		// <hash>\trefs/tags/<tag>
		_, ref, ok := strings.Cut(line, "\t")
		if ok {
			tags = append(tags, strings.TrimPrefix(ref, "refs/tags/"))
		}
	}
	return tags, nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %s", args[0], msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
