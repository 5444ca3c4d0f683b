// Package reconcile computes and applies the changes that bring a project
// tree in line with a template tree.
//
// Reconciliation is staged: TakeSnapshot freezes both trees, BuildPlan turns
// the pair plus a compiled ruleset into an immutable ordered Plan, and
// Applier executes the plan against the filesystem. Planning never mutates
// anything, so a plan can be rendered for --dry-run, hashed for the run
// journal, or compared in golden tests before a single byte moves.
//
// Apply is best-effort per path: a failing operation is recorded in its
// OpResult and the pass continues. Callers decide how loudly to surface
// partial failure; the package never aborts a run halfway.
//
// Key responsibilities:
//   - Snapshot: deterministic file inventory with content digests
//   - Plan: mode-aware operation list (install merges, upgrades replace)
//   - Apply: execute ops through vfs.FS, tagging each path applied/skipped/failed
//   - Report: aggregate results with canonical JSON identity
package reconcile
