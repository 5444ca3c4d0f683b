package reconcile

import (
	"fmt"
	"path"
	"strings"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/vfs"
)

// Plan is an immutable ordered list of operations. Ops appear in apply
// order: legacy migration, then each managed dir (delete before copy), then
// individually managed root files, then preserved root files.
type Plan struct {
	Mode Mode `json:"mode"`
	Ops  []Op `json:"ops"`
}

// BuildPlan computes the operations that reconcile project against template
// under the given rules and mode. Planning is pure: no filesystem access,
// no mutation of either snapshot. The same inputs always produce the same
// plan, op for op.
func BuildPlan(template, project *Snapshot, rules *manifest.Ruleset, mode Mode) (*Plan, error) {
	if template == nil || project == nil {
		return nil, fmt.Errorf("BuildPlan: both snapshots are required")
	}
	if rules == nil {
		return nil, fmt.Errorf("BuildPlan: ruleset is required")
	}

	p := &Plan{Mode: mode}

	migrated := make(map[string]bool)
	for _, op := range planMigration(template, project, rules, mode) {
		migrated[op.Path] = true
		p.Ops = append(p.Ops, op)
	}

	// A migrated path counts as existing for every merge decision below.
	exists := func(rel string) bool { return project.Has(rel) || migrated[rel] }

	for _, dir := range rules.ManagedDirs() {
		entries := template.Under(dir)
		if len(entries) == 0 && !template.HasDir(dir) {
			continue // template does not ship this dir
		}
		if mode.IsUpgrade() && project.HasDir(dir) {
			p.Ops = append(p.Ops, Op{Action: ActionDeleteDir, Path: dir})
		}
		if len(entries) == 0 {
			if mode.IsUpgrade() || !project.HasDir(dir) {
				p.Ops = append(p.Ops, Op{Action: ActionMkdir, Path: dir})
			}
			continue
		}
		for _, e := range entries {
			switch {
			case rules.IsUpstreamOnly(e.Path):
				p.Ops = append(p.Ops, Op{Action: ActionExclude, Path: e.Path, Reason: "upstream-only"})
			case !mode.IsUpgrade() && exists(e.Path):
				p.Ops = append(p.Ops, Op{Action: ActionSkip, Path: e.Path, Reason: "already present"})
			default:
				p.Ops = append(p.Ops, Op{Action: ActionCopy, Path: e.Path, From: e.Path, Digest: e.Digest})
			}
		}
	}

	// Individually managed root files: install merges, upgrades overwrite.
	for _, f := range rules.ProtocolFiles() {
		e, ok := template.Entry(f)
		if !ok {
			continue
		}
		if !mode.IsUpgrade() && exists(f) {
			p.Ops = append(p.Ops, Op{Action: ActionSkip, Path: f, Reason: "already present"})
			continue
		}
		p.Ops = append(p.Ops, Op{Action: ActionCopy, Path: f, From: f, Digest: e.Digest})
	}

	// Preserved root files: merge-only-new in every mode.
	for _, f := range rules.PreservedFiles() {
		e, ok := template.Entry(f)
		if !ok {
			continue
		}
		if exists(f) {
			p.Ops = append(p.Ops, Op{Action: ActionSkip, Path: f, Reason: "preserved"})
			continue
		}
		p.Ops = append(p.Ops, Op{Action: ActionCopy, Path: f, From: f, Digest: e.Digest})
	}

	return p, nil
}

// planMigration emits copy ops from the legacy config dir into the current
// one when the project still uses the old name and has nothing under the new
// one. The legacy dir is read, never written or deleted.
func planMigration(template, project *Snapshot, rules *manifest.Ruleset, mode Mode) []Op {
	legacy := rules.LegacyConfigDir
	if legacy == "" {
		return nil
	}
	if !project.HasDir(legacy) {
		return nil
	}
	if project.HasDir(rules.ConfigDir) || len(project.Under(rules.ConfigDir)) > 0 {
		return nil
	}
	// Upgrades replace the config dir wholesale right after, so migration
	// only applies when the migrated content would survive the plan.
	if mode.IsUpgrade() && (template.HasDir(rules.ConfigDir) || len(template.Under(rules.ConfigDir)) > 0) {
		return nil
	}

	var ops []Op
	for _, e := range project.Under(legacy) {
		rest := strings.TrimPrefix(e.Path, legacy+"/")
		ops = append(ops, Op{
			Action: ActionMigrate,
			Path:   vfs.Canonical(path.Join(rules.ConfigDir, rest)),
			From:   e.Path,
			Digest: e.Digest,
		})
	}
	return ops
}

// CountByAction tallies ops per action for summary rendering.
func (p *Plan) CountByAction() map[Action]int {
	counts := make(map[Action]int)
	for _, op := range p.Ops {
		counts[op.Action]++
	}
	return counts
}

// CanonicalJSON renders the plan as RFC 8785 canonical JSON.
func (p *Plan) CanonicalJSON() ([]byte, error) {
	ops := make([]any, 0, len(p.Ops))
	for _, op := range p.Ops {
		ops = append(ops, op.canonicalMap())
	}
	return MarshalCanonical(map[string]any{
		"mode": p.Mode.String(),
		"ops":  ops,
	})
}
