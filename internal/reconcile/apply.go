package reconcile

import (
	"context"
	"errors"
	iofs "io/fs"
	"log/slog"
	"path/filepath"

	"github.com/iberi22/gitcore/internal/vfs"
)

// Outcome tags what actually happened to one planned operation.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// OpResult pairs an operation with its outcome. Err is a message, not an
// error value, so results serialize cleanly into reports and the journal.
type OpResult struct {
	Op      Op      `json:"op"`
	Outcome Outcome `json:"outcome"`
	Err     string  `json:"error,omitempty"`
}

func (r OpResult) canonicalMap() map[string]any {
	m := map[string]any{
		"op":      r.Op.canonicalMap(),
		"outcome": string(r.Outcome),
	}
	if r.Err != "" {
		m["error"] = r.Err
	}
	return m
}

// Applier executes plans against a filesystem.
type Applier struct {
	FS           vfs.FS
	TemplateRoot string
	ProjectRoot  string
	Logger       *slog.Logger
}

// Apply executes the plan with best-effort semantics: a failing path is
// recorded and the pass continues. One OpResult comes back per op, in op
// order. Only context cancellation stops the pass early; remaining ops are
// then reported as failed.
func (a *Applier) Apply(ctx context.Context, plan *Plan) []OpResult {
	logger := a.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]OpResult, 0, len(plan.Ops))
	for i, op := range plan.Ops {
		if err := ctx.Err(); err != nil {
			for _, rest := range plan.Ops[i:] {
				results = append(results, OpResult{Op: rest, Outcome: OutcomeFailed, Err: err.Error()})
			}
			break
		}

		res := a.applyOne(op)
		if res.Outcome == OutcomeFailed {
			logger.Warn("apply failed",
				"action", string(op.Action),
				"path", op.Path,
				"error", res.Err)
		} else {
			logger.Debug("apply",
				"action", string(op.Action),
				"path", op.Path,
				"outcome", string(res.Outcome))
		}
		results = append(results, res)
	}
	return results
}

func (a *Applier) applyOne(op Op) OpResult {
	switch op.Action {
	case ActionSkip, ActionExclude:
		return OpResult{Op: op, Outcome: OutcomeSkipped}

	case ActionCopy:
		return a.result(op, a.copyFromTemplate(op))

	case ActionMigrate:
		return a.result(op, a.copyWithinProject(op.From, op.Path))

	case ActionMove:
		return a.result(op, a.moveWithinProject(op.From, op.Path))

	case ActionDeleteDir:
		target := a.projectPath(op.Path)
		if _, err := a.FS.Stat(target); errors.Is(err, iofs.ErrNotExist) {
			return OpResult{Op: op, Outcome: OutcomeSkipped, Err: ""}
		}
		return a.result(op, a.FS.RemoveAll(target))

	case ActionMkdir:
		return a.result(op, a.FS.MkdirAll(a.projectPath(op.Path), 0o755))

	default:
		return OpResult{Op: op, Outcome: OutcomeFailed, Err: "unknown action"}
	}
}

func (a *Applier) result(op Op, err error) OpResult {
	if err != nil {
		return OpResult{Op: op, Outcome: OutcomeFailed, Err: err.Error()}
	}
	return OpResult{Op: op, Outcome: OutcomeApplied}
}

func (a *Applier) copyFromTemplate(op Op) error {
	data, err := a.FS.ReadFile(filepath.Join(a.TemplateRoot, filepath.FromSlash(op.From)))
	if err != nil {
		return err
	}
	dst := a.projectPath(op.Path)
	if err := a.FS.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return vfs.WriteFileAtomic(a.FS, dst, data, 0o644)
}

func (a *Applier) copyWithinProject(fromRel, toRel string) error {
	data, err := a.FS.ReadFile(a.projectPath(fromRel))
	if err != nil {
		return err
	}
	dst := a.projectPath(toRel)
	if err := a.FS.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return vfs.WriteFileAtomic(a.FS, dst, data, 0o644)
}

func (a *Applier) moveWithinProject(fromRel, toRel string) error {
	dst := a.projectPath(toRel)
	if err := a.FS.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return a.FS.Rename(a.projectPath(fromRel), dst)
}

func (a *Applier) projectPath(rel string) string {
	return filepath.Join(a.ProjectRoot, filepath.FromSlash(rel))
}
