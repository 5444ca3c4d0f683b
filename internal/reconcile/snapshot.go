package reconcile

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/iberi22/gitcore/internal/vfs"
)

// Entry is one file in a tree snapshot.
type Entry struct {
	Path   string // canonical tree-relative path
	Size   int64
	Digest string
}

// Snapshot is an immutable inventory of a tree's files, taken before any
// plan is computed. Both the template and the project tree are snapshotted
// with the same walk so merge decisions compare like with like.
type Snapshot struct {
	root    string
	entries map[string]Entry
	dirs    map[string]bool
	order   []string
}

// Top-level names that are never part of the reconciled surface. The VCS
// store and the run journal would only add noise and walk cost.
var snapshotSkip = map[string]bool{
	".git":     true,
	".gitcore": true,
}

// TakeSnapshot walks root and records every file with its content digest.
// Entries come back in sorted canonical-path order.
func TakeSnapshot(fsys vfs.FS, root string) (*Snapshot, error) {
	s := &Snapshot{
		root:    root,
		entries: make(map[string]Entry),
		dirs:    make(map[string]bool),
	}
	if err := s.walk(fsys, root, ""); err != nil {
		return nil, err
	}
	s.order = make([]string, 0, len(s.entries))
	for p := range s.entries {
		s.order = append(s.order, p)
	}
	sort.Strings(s.order)
	return s, nil
}

func (s *Snapshot) walk(fsys vfs.FS, abs, rel string) error {
	dirents, err := fsys.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", abs, err)
	}
	for _, de := range dirents {
		name := de.Name()
		if rel == "" && snapshotSkip[name] {
			continue
		}
		childAbs := filepath.Join(abs, name)
		childRel := vfs.Canonical(path.Join(rel, name))
		if de.IsDir() {
			s.dirs[childRel] = true
			if err := s.walk(fsys, childAbs, childRel); err != nil {
				return err
			}
			continue
		}
		data, err := fsys.ReadFile(childAbs)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", childAbs, err)
		}
		s.entries[childRel] = Entry{
			Path:   childRel,
			Size:   int64(len(data)),
			Digest: ContentDigest(data),
		}
	}
	return nil
}

// Root returns the absolute root the snapshot was taken from.
func (s *Snapshot) Root() string { return s.root }

// Len returns the number of files in the snapshot.
func (s *Snapshot) Len() int { return len(s.entries) }

// Has reports whether the snapshot holds a file at rel.
func (s *Snapshot) Has(rel string) bool {
	_, ok := s.entries[vfs.Canonical(rel)]
	return ok
}

// Entry returns the entry at rel, if any.
func (s *Snapshot) Entry(rel string) (Entry, bool) {
	e, ok := s.entries[vfs.Canonical(rel)]
	return e, ok
}

// HasDir reports whether rel existed as a directory at snapshot time,
// whether or not it held any files.
func (s *Snapshot) HasDir(rel string) bool {
	return s.dirs[vfs.Canonical(rel)]
}

// Under returns every entry at or below dir, in sorted path order.
func (s *Snapshot) Under(dir string) []Entry {
	dir = vfs.Canonical(dir)
	var out []Entry
	for _, p := range s.order {
		if vfs.Under(p, dir) {
			out = append(out, s.entries[p])
		}
	}
	return out
}

// Paths returns every file path in sorted order.
func (s *Snapshot) Paths() []string {
	return append([]string(nil), s.order...)
}
