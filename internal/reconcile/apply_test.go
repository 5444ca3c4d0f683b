package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/testutil"
	"github.com/iberi22/gitcore/internal/vfs"
)

func applyPlan(t *testing.T, fsys vfs.FS, plan *Plan) []OpResult {
	t.Helper()
	a := &Applier{FS: fsys, TemplateRoot: "/tpl", ProjectRoot: "/prj"}
	return a.Apply(context.Background(), plan)
}

func setupTrees(t *testing.T, tplFiles, prjFiles map[string]string) *vfs.MemFS {
	t.Helper()
	fsys := vfs.NewMemFS()
	testutil.WriteTree(t, fsys, "/tpl", tplFiles)
	testutil.WriteTree(t, fsys, "/prj", prjFiles)
	return fsys
}

func planAgainst(t *testing.T, fsys vfs.FS, mode Mode) *Plan {
	t.Helper()
	tpl := snap(t, fsys, "/tpl")
	prj := snap(t, fsys, "/prj")
	plan, err := BuildPlan(tpl, prj, defaultRules(t), mode)
	require.NoError(t, err)
	return plan
}

func TestApplyInstallIntoEmptyProject(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), nil)
	plan := planAgainst(t, fsys, ModeInstall)

	results := applyPlan(t, fsys, plan)
	for _, res := range results {
		assert.NotEqual(t, OutcomeFailed, res.Outcome, "op %s %s: %s", res.Op.Action, res.Op.Path, res.Err)
	}

	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Equal(t, "1.2.0\n", got[".gitcore-version"])
	assert.Equal(t, "# Protocol\n", got["core/PROTOCOL.md"])
	assert.Equal(t, "name: telemetry\n", got[".github/workflows/telemetry.yml"])
	assert.Equal(t, "# Template\n", got["README.md"])

	// Upstream-only paths never land.
	_, ok := got[".github/workflows/release.yml"]
	assert.False(t, ok)
	_, ok = got["scripts/bump-version.sh"]
	assert.False(t, ok)
}

func TestApplyInstallPreservesExistingContent(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), map[string]string{
		"README.md":            "# Mine\n",
		"core/ARCHITECTURE.md": "my architecture\n",
		"src/main.go":          "package main\n",
	})
	plan := planAgainst(t, fsys, ModeInstall)
	applyPlan(t, fsys, plan)

	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Equal(t, "# Mine\n", got["README.md"])
	assert.Equal(t, "my architecture\n", got["core/ARCHITECTURE.md"])
	assert.Equal(t, "package main\n", got["src/main.go"])
	// New protocol content still arrives.
	assert.Equal(t, "# Protocol\n", got["core/PROTOCOL.md"])
}

func TestApplyInstallIdempotent(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), nil)
	applyPlan(t, fsys, planAgainst(t, fsys, ModeInstall))
	after1 := testutil.ReadTree(t, fsys, "/prj")

	// Second run plans against the now-populated project.
	plan2 := planAgainst(t, fsys, ModeInstall)
	for _, op := range plan2.Ops {
		assert.Contains(t, []Action{ActionSkip, ActionExclude}, op.Action,
			"second install must be a no-op, got %s %s", op.Action, op.Path)
	}
	applyPlan(t, fsys, plan2)
	after2 := testutil.ReadTree(t, fsys, "/prj")

	assert.Equal(t, after1, after2)
}

func TestApplySafeUpgradeReplacesManagedContent(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), map[string]string{
		".gitcore-version":         "1.0.0\n",
		"core/PROTOCOL.md":         "hacked\n",
		"core/stale.md":            "left over from 1.0.0\n",
		".github/workflows/ci.yml": "name: ci\n",
		"README.md":                "# Mine\n",
	})
	plan := planAgainst(t, fsys, ModeSafeUpgrade)
	applyPlan(t, fsys, plan)

	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Equal(t, "# Protocol\n", got["core/PROTOCOL.md"], "managed content is template-owned")
	assert.Equal(t, "1.2.0\n", got[".gitcore-version"])
	assert.Equal(t, "# Mine\n", got["README.md"], "preserved files survive upgrades")

	// Wholesale replacement drops stale managed files; the backup set is
	// responsible for carrying user artifacts, not the plan.
	_, ok := got["core/stale.md"]
	assert.False(t, ok)
	_, ok = got[".github/workflows/ci.yml"]
	assert.False(t, ok)
}

func TestApplyMigrateCopiesWithoutDeleting(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), map[string]string{
		"g-core/ARCHITECTURE.md": "legacy architecture\n",
	})
	plan := planAgainst(t, fsys, ModeInstall)
	applyPlan(t, fsys, plan)

	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Equal(t, "legacy architecture\n", got["core/ARCHITECTURE.md"])
	assert.Equal(t, "legacy architecture\n", got["g-core/ARCHITECTURE.md"], "legacy dir is read-only")
}

func TestApplyBestEffortContinuesPastFailures(t *testing.T) {
	fsys := setupTrees(t, map[string]string{"AGENTS.md": "# Agents\n"}, nil)
	plan := &Plan{Mode: ModeInstall, Ops: []Op{
		{Action: ActionCopy, Path: "core/missing.md", From: "core/missing.md"},
		{Action: ActionCopy, Path: "AGENTS.md", From: "AGENTS.md"},
	}}

	results := applyPlan(t, fsys, plan)
	require.Len(t, results, 2)

	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.NotEmpty(t, results[0].Err)
	assert.Equal(t, OutcomeApplied, results[1].Outcome)

	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Equal(t, "# Agents\n", got["AGENTS.md"])
}

func TestApplyDeleteDirAbsentIsSkipped(t *testing.T) {
	fsys := setupTrees(t, map[string]string{"AGENTS.md": "x"}, nil)
	plan := &Plan{Mode: ModeSafeUpgrade, Ops: []Op{{Action: ActionDeleteDir, Path: "core"}}}

	results := applyPlan(t, fsys, plan)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
}

func TestApplyCancelledContext(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), nil)
	plan := planAgainst(t, fsys, ModeInstall)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Applier{FS: fsys, TemplateRoot: "/tpl", ProjectRoot: "/prj"}
	results := a.Apply(ctx, plan)

	require.Len(t, results, len(plan.Ops))
	for _, res := range results {
		assert.Equal(t, OutcomeFailed, res.Outcome)
	}
	// Nothing was written.
	got := testutil.ReadTree(t, fsys, "/prj")
	assert.Empty(t, got)
}

func TestApplyUnknownActionFails(t *testing.T) {
	fsys := setupTrees(t, nil, nil)
	plan := &Plan{Ops: []Op{{Action: Action("teleport"), Path: "x"}}}

	results := applyPlan(t, fsys, plan)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
}

func TestReportCounts(t *testing.T) {
	fsys := setupTrees(t, templateFiles(), map[string]string{
		"core/PROTOCOL.md": "old\n",
	})
	plan := planAgainst(t, fsys, ModeSafeUpgrade)
	results := applyPlan(t, fsys, plan)

	rep := &Report{Mode: ModeSafeUpgrade, Results: results}
	counts := rep.Counts()

	assert.Equal(t, 13, counts.Copied)
	assert.Equal(t, 1, counts.Deleted)
	assert.Equal(t, 3, counts.Excluded)
	assert.Zero(t, counts.Failed)
	assert.True(t, rep.Ok())
}
