package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/vfs"
)

// GitSource clones a template repository. Clones are shallow: reconciliation
// only ever reads the tip tree, never history.
type GitSource struct {
	Repo   string
	Ref    string // branch or tag; empty means the remote default
	Runner execx.Runner
	FS     vfs.FS
}

// Fetch clones the repository into a temporary directory. A failed clone is
// fatal to the run, so the error carries git's stderr.
func (g *GitSource) Fetch(ctx context.Context) (string, func() error, error) {
	dir, err := g.FS.MkdirTemp("", "gitcore-template-*")
	if err != nil {
		return "", nil, fmt.Errorf("source: create clone dir: %w", err)
	}
	cleanup := func() error { return g.FS.RemoveAll(dir) }

	args := []string{"clone", "--depth", "1"}
	if g.Ref != "" {
		args = append(args, "--branch", g.Ref)
	}
	args = append(args, g.Repo, dir)

	res, err := g.Runner.Run(ctx, "git", args, execx.RunOpts{})
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("source: clone %s: %w", g.Repo, err)
	}
	if res.ExitCode != 0 {
		cleanup()
		return "", nil, fmt.Errorf("source: clone %s: git exited %d: %s",
			g.Repo, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return dir, cleanup, nil
}

// Describe returns the repository URL, with the ref when one was pinned.
func (g *GitSource) Describe() string {
	if g.Ref != "" {
		return g.Repo + "#" + g.Ref
	}
	return g.Repo
}
