// Package backup captures user-owned artifacts before an upgrade deletes
// managed directories, and restores them afterwards.
//
// A Set is ephemeral by contract: it restores exactly once, and both Restore
// and Discard delete the backing storage. Nothing outlives the run.
package backup

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/vfs"
)

// ErrConsumed is returned when a Set is asked to restore twice.
var ErrConsumed = errors.New("backup: set already consumed")

// Class tags why an artifact was captured.
type Class string

const (
	ClassArchitecture   Class = "architecture"
	ClassContextLog     Class = "context-log"
	ClassCustomWorkflow Class = "custom-workflow"
	ClassUserFile       Class = "user-file"
)

// Entry is one captured artifact. Content lives in the backing storage, not
// in memory; Size is recorded for reporting.
type Entry struct {
	Path  string // canonical project-relative path
	Class Class
	Size  int64
}

// Set is an ordered capture of user-owned artifacts with disk-backed content.
type Set struct {
	fs       vfs.FS
	dir      string
	entries  []Entry
	consumed bool
}

// Capture collects every user-owned artifact present in the project into a
// fresh Set: the explicitly user-owned paths, then every file in the
// workflow dir whose name is not protocol-reserved. Reserved workflows are
// never captured. A capture failure is fatal; the caller must not proceed
// to any destructive step without a complete Set.
func Capture(fsys vfs.FS, projectRoot string, rules *manifest.Ruleset) (*Set, error) {
	dir, err := fsys.MkdirTemp("", "gitcore-backup-*")
	if err != nil {
		return nil, fmt.Errorf("backup: create storage: %w", err)
	}
	s := &Set{fs: fsys, dir: dir}

	for _, rel := range rules.UserOwnedPaths() {
		if err := s.captureOne(projectRoot, rel, classOf(rel, rules)); err != nil {
			fsys.RemoveAll(dir)
			return nil, err
		}
	}

	workflows, err := customWorkflows(fsys, projectRoot, rules)
	if err != nil {
		fsys.RemoveAll(dir)
		return nil, err
	}
	for _, rel := range workflows {
		if err := s.captureOne(projectRoot, rel, ClassCustomWorkflow); err != nil {
			fsys.RemoveAll(dir)
			return nil, err
		}
	}

	return s, nil
}

func classOf(rel string, rules *manifest.Ruleset) Class {
	switch rel {
	case rules.ArchitectureFile:
		return ClassArchitecture
	case rules.ContextLog:
		return ClassContextLog
	}
	return ClassUserFile
}

// customWorkflows lists the files in the workflow dir that are not reserved,
// sorted by name. The scan is flat: workflow runners only read top-level
// files.
func customWorkflows(fsys vfs.FS, projectRoot string, rules *manifest.Ruleset) ([]string, error) {
	dirents, err := fsys.ReadDir(filepath.Join(projectRoot, filepath.FromSlash(rules.WorkflowDir)))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: scan %s: %w", rules.WorkflowDir, err)
	}

	var out []string
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		rel := vfs.Canonical(path.Join(rules.WorkflowDir, de.Name()))
		if rules.IsReservedWorkflow(rel) {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Set) captureOne(projectRoot, rel string, class Class) error {
	data, err := s.fs.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(rel)))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil // nothing to preserve
	}
	if err != nil {
		return fmt.Errorf("backup: capture %s: %w", rel, err)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("backup: capture %s: %w", rel, err)
	}
	if err := s.fs.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("backup: capture %s: %w", rel, err)
	}

	s.entries = append(s.entries, Entry{Path: rel, Class: class, Size: int64(len(data))})
	return nil
}

// Entries returns the captured artifacts in capture order.
func (s *Set) Entries() []Entry { return append([]Entry(nil), s.entries...) }

// Len returns the number of captured artifacts.
func (s *Set) Len() int { return len(s.entries) }

// Empty reports whether nothing was captured.
func (s *Set) Empty() bool { return len(s.entries) == 0 }

// Dir returns the backing storage location, for diagnostics.
func (s *Set) Dir() string { return s.dir }

// Restore writes the captured artifacts back into the project and deletes
// the backing storage. Restore is exactly-once: a second call returns
// ErrConsumed. Per-entry failures are recorded, not fatal.
//
// Under ModeForceUpgrade the architecture artifact is deliberately not
// restored, so the template's copy stands.
func (s *Set) Restore(projectRoot string, mode reconcile.Mode) ([]reconcile.OpResult, error) {
	if s.consumed {
		return nil, ErrConsumed
	}
	s.consumed = true

	results := make([]reconcile.OpResult, 0, len(s.entries))
	for _, e := range s.entries {
		op := reconcile.Op{Action: reconcile.ActionRestore, Path: e.Path, Reason: string(e.Class)}

		if mode == reconcile.ModeForceUpgrade && e.Class == ClassArchitecture {
			op.Reason = "force-upgrade keeps template architecture"
			results = append(results, reconcile.OpResult{Op: op, Outcome: reconcile.OutcomeSkipped})
			continue
		}

		if err := s.restoreOne(projectRoot, e); err != nil {
			results = append(results, reconcile.OpResult{
				Op:      op,
				Outcome: reconcile.OutcomeFailed,
				Err:     err.Error(),
			})
			continue
		}
		results = append(results, reconcile.OpResult{Op: op, Outcome: reconcile.OutcomeApplied})
	}

	if err := s.fs.RemoveAll(s.dir); err != nil {
		return results, fmt.Errorf("backup: delete storage: %w", err)
	}
	return results, nil
}

func (s *Set) restoreOne(projectRoot string, e Entry) error {
	data, err := s.fs.ReadFile(filepath.Join(s.dir, filepath.FromSlash(e.Path)))
	if err != nil {
		return err
	}
	dst := filepath.Join(projectRoot, filepath.FromSlash(e.Path))
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return vfs.WriteFileAtomic(s.fs, dst, data, 0o644)
}

// Discard deletes the backing storage without restoring. Safe to defer:
// discarding a consumed set is a no-op.
func (s *Set) Discard() error {
	if s.consumed {
		return nil
	}
	s.consumed = true
	return s.fs.RemoveAll(s.dir)
}
