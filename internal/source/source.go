// Package source acquires template trees for reconciliation.
//
// A Source materializes the template into a local directory and hands the
// reconciler a root it can snapshot. Fetching is the only stage allowed to
// touch the network; everything downstream works on the local tree.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/vfs"
)

// DefaultRepo is the canonical template repository.
const DefaultRepo = "https://github.com/iberi22/Git-Core-Protocol.git"

// Source materializes a template tree.
type Source interface {
	// Fetch makes the template available locally and returns its root plus
	// a cleanup that releases anything Fetch created.
	Fetch(ctx context.Context) (root string, cleanup func() error, err error)
	// Describe returns a stable identity for reports and the journal.
	Describe() string
}

// Parse turns a user-supplied spec into a Source.
//
// Accepted forms:
//
//	(empty)            the default repository
//	owner/repo         GitHub shorthand
//	https://... / git@ a git URL, used verbatim
//	./dir, ../dir, /p  a local template tree
//
// Any git form may carry a "#ref" suffix selecting a branch or tag.
func Parse(spec string, fsys vfs.FS, runner execx.Runner) (Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return &GitSource{Repo: DefaultRepo, Runner: runner, FS: fsys}, nil
	}

	if isLocal(spec, fsys) {
		return &DirSource{Dir: spec, FS: fsys}, nil
	}

	repo, ref := splitRef(spec)
	if repo == "" {
		return nil, fmt.Errorf("source: empty repository in %q", spec)
	}
	if isShorthand(repo) {
		repo = "https://github.com/" + repo + ".git"
	}
	return &GitSource{Repo: repo, Ref: ref, Runner: runner, FS: fsys}, nil
}

func isLocal(spec string, fsys vfs.FS) bool {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") {
		return true
	}
	if strings.Contains(spec, "://") || strings.HasPrefix(spec, "git@") {
		return false
	}
	info, err := fsys.Stat(spec)
	return err == nil && info.IsDir()
}

func splitRef(spec string) (repo, ref string) {
	if i := strings.LastIndex(spec, "#"); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

// isShorthand reports whether repo looks like "owner/name".
func isShorthand(repo string) bool {
	if strings.Contains(repo, "://") || strings.HasPrefix(repo, "git@") {
		return false
	}
	parts := strings.Split(repo, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
