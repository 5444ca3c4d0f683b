package source

import (
	"context"
	"fmt"

	"github.com/iberi22/gitcore/internal/vfs"
)

// DirSource serves a template straight from a local directory. Used for
// development against a checked-out template and throughout the tests.
type DirSource struct {
	Dir string
	FS  vfs.FS
}

// Fetch validates the directory and returns it as-is. The cleanup is a
// no-op: the tree belongs to the caller, not to this run.
func (d *DirSource) Fetch(ctx context.Context) (string, func() error, error) {
	info, err := d.FS.Stat(d.Dir)
	if err != nil {
		return "", nil, fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("source: %s is not a directory", d.Dir)
	}
	return d.Dir, func() error { return nil }, nil
}

// Describe returns "dir:" plus the path.
func (d *DirSource) Describe() string { return "dir:" + d.Dir }
