package testutil

import (
	"path"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/vfs"
)

// WriteTree seeds files under root through any vfs.FS implementation.
//
// Keys are slash-relative paths, values are file contents. Parent
// directories are created as needed. Files land in sorted key order so
// seeding is deterministic.
func WriteTree(t *testing.T, fsys vfs.FS, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(root, 0o755))

	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rel := range keys {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, fsys.WriteFile(abs, []byte(files[rel]), 0o644))
	}
}

// ReadTree returns every file under root keyed by slash-relative path.
//
// The inverse of WriteTree, for asserting on a whole tree at once.
func ReadTree(t *testing.T, fsys vfs.FS, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	readTreeInto(t, fsys, root, "", out)
	return out
}

func readTreeInto(t *testing.T, fsys vfs.FS, abs, rel string, out map[string]string) {
	t.Helper()
	entries, err := fsys.ReadDir(abs)
	require.NoError(t, err)
	for _, de := range entries {
		childAbs := filepath.Join(abs, de.Name())
		childRel := path.Join(rel, de.Name())
		if de.IsDir() {
			readTreeInto(t, fsys, childAbs, childRel, out)
			continue
		}
		data, err := fsys.ReadFile(childAbs)
		require.NoError(t, err)
		out[childRel] = string(data)
	}
}
