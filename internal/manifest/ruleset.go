package manifest

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/iberi22/gitcore/internal/vfs"
)

// Disposition classifies a project-relative path for reconciliation.
type Disposition int

const (
	// DispositionIgnored means the reconciler never reads or writes the path.
	DispositionIgnored Disposition = iota
	// DispositionProtocol means the template owns the path outright.
	DispositionProtocol
	// DispositionUserOwned means the path survives every upgrade via backup/restore.
	DispositionUserOwned
	// DispositionMergeOnlyNew means the template copy lands only when the
	// project has no file at the path.
	DispositionMergeOnlyNew
)

// String returns the wire name of the disposition.
func (d Disposition) String() string {
	switch d {
	case DispositionProtocol:
		return "protocol"
	case DispositionUserOwned:
		return "user-owned"
	case DispositionMergeOnlyNew:
		return "merge-only-new"
	default:
		return "ignored"
	}
}

// Ruleset is a validated, compiled manifest. Slices are sorted so every
// consumer iterates rules in one deterministic order.
type Ruleset struct {
	Marker           string
	ConfigDir        string
	LegacyConfigDir  string
	ArchitectureFile string
	ContextLog       string
	WorkflowDir      string
	DocsDir          string

	managedDirs    []string
	protocolFiles  []string
	preservedFiles []string
	userOwned      []string
	upstreamOnly   []string
	reserved       map[string]bool
}

// Compile validates the manifest and freezes it into a Ruleset.
func Compile(m *Manifest) (*Ruleset, error) {
	if errs := Validate(m); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("manifest: %s", strings.Join(msgs, "; "))
	}

	r := &Ruleset{
		Marker:           m.VersionMarker,
		ConfigDir:        m.ConfigDir,
		LegacyConfigDir:  m.LegacyConfigDir,
		ArchitectureFile: m.ArchitectureFile,
		ContextLog:       m.ContextLog,
		WorkflowDir:      m.WorkflowDir,
		DocsDir:          m.DocsDir,
		managedDirs:      sortedCopy(m.ManagedDirs),
		protocolFiles:    sortedCopy(m.ProtocolFiles),
		preservedFiles:   sortedCopy(m.PreservedFiles),
		userOwned:        sortedCopy(m.UserOwned),
		upstreamOnly:     sortedCopy(m.UpstreamOnly),
		reserved:         make(map[string]bool, len(m.ReservedWorkflows)),
	}
	for _, w := range m.ReservedWorkflows {
		r.reserved[w] = true
	}
	return r, nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// ManagedDirs returns the protocol-managed directories in sorted order.
func (r *Ruleset) ManagedDirs() []string { return append([]string(nil), r.managedDirs...) }

// ProtocolFiles returns the individually managed root files in sorted order.
func (r *Ruleset) ProtocolFiles() []string { return append([]string(nil), r.protocolFiles...) }

// PreservedFiles returns the merge-only-new root files in sorted order.
func (r *Ruleset) PreservedFiles() []string { return append([]string(nil), r.preservedFiles...) }

// UserOwnedPaths returns the explicitly user-owned paths in sorted order.
// Custom workflows are user-owned by position, not by listing here.
func (r *Ruleset) UserOwnedPaths() []string { return append([]string(nil), r.userOwned...) }

// UpstreamOnly returns template paths that must never reach a project.
func (r *Ruleset) UpstreamOnly() []string { return append([]string(nil), r.upstreamOnly...) }

// IsReservedWorkflow reports whether rel names a protocol-reserved workflow.
func (r *Ruleset) IsReservedWorkflow(rel string) bool {
	rel = vfs.Canonical(rel)
	return vfs.Under(rel, r.WorkflowDir) && rel != r.WorkflowDir && r.reserved[path.Base(rel)]
}

// IsUpstreamOnly reports whether rel is excluded from installed projects.
func (r *Ruleset) IsUpstreamOnly(rel string) bool {
	rel = vfs.Canonical(rel)
	for _, p := range r.upstreamOnly {
		if rel == p {
			return true
		}
	}
	return false
}

// ManagedDirOf returns the managed dir containing rel, if any.
func (r *Ruleset) ManagedDirOf(rel string) (string, bool) {
	rel = vfs.Canonical(rel)
	for _, d := range r.managedDirs {
		if vfs.Under(rel, d) {
			return d, true
		}
	}
	return "", false
}

// Resolve classifies a project-relative path.
//
// Precedence: preserved and protocol root files are exact matches; explicit
// user-owned paths and custom workflows beat the managed-dir rule; everything
// outside the managed surface is ignored.
func (r *Ruleset) Resolve(rel string) Disposition {
	rel = vfs.Canonical(rel)

	for _, p := range r.preservedFiles {
		if rel == p {
			return DispositionMergeOnlyNew
		}
	}
	for _, p := range r.protocolFiles {
		if rel == p {
			return DispositionProtocol
		}
	}
	for _, p := range r.userOwned {
		if rel == p {
			return DispositionUserOwned
		}
	}
	if vfs.Under(rel, r.WorkflowDir) && rel != r.WorkflowDir {
		if r.reserved[path.Base(rel)] {
			return DispositionProtocol
		}
		return DispositionUserOwned
	}
	if _, ok := r.ManagedDirOf(rel); ok {
		return DispositionProtocol
	}
	return DispositionIgnored
}
