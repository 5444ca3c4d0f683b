// Package reorganize plans the docs cleanup: loose markdown files at the
// project root move under the docs directory.
package reorganize

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/vfs"
)

// BuildPlan lists root-level markdown files that belong under rules.DocsDir
// and plans one move per file. Files the rules pin to the root (protocol,
// preserved) and dot-prefixed files stay put; a file whose destination
// already exists becomes a skip so the collision is visible in the report.
func BuildPlan(fsys vfs.FS, projectRoot string, rules *manifest.Ruleset) ([]reconcile.Op, error) {
	dirents, err := fsys.ReadDir(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("reorganize: scan %s: %w", projectRoot, err)
	}

	var names []string
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}
		if rules.Resolve(name) != manifest.DispositionIgnored {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var ops []reconcile.Op
	for _, name := range names {
		dest := path.Join(rules.DocsDir, name)
		_, err := fsys.Stat(filepath.Join(projectRoot, filepath.FromSlash(dest)))
		switch {
		case err == nil:
			ops = append(ops, reconcile.Op{
				Action: reconcile.ActionSkip,
				Path:   dest,
				From:   name,
				Reason: "destination exists",
			})
		case errors.Is(err, iofs.ErrNotExist):
			ops = append(ops, reconcile.Op{
				Action: reconcile.ActionMove,
				Path:   dest,
				From:   name,
			})
		default:
			return nil, fmt.Errorf("reorganize: stat %s: %w", dest, err)
		}
	}
	return ops, nil
}

// Apply executes the planned moves best-effort, one result per op.
func Apply(ctx context.Context, fsys vfs.FS, projectRoot string, logger *slog.Logger, ops []reconcile.Op) []reconcile.OpResult {
	applier := &reconcile.Applier{FS: fsys, ProjectRoot: projectRoot, Logger: logger}
	return applier.Apply(ctx, &reconcile.Plan{Ops: ops})
}
