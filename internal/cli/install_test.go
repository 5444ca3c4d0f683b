package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/journal"
	"github.com/iberi22/gitcore/internal/testutil"
	"github.com/iberi22/gitcore/internal/vfs"
)

// testEnv wires a deterministic environment: real filesystem, scripted
// runner, sequential run IDs, pinned clock.
func testEnv(runner execx.Runner) *Env {
	clock := testutil.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if runner == nil {
		runner = execx.NewStubRunner()
	}
	return &Env{
		FS:     vfs.NewRealFS(),
		Runner: runner,
		IDs:    &journal.FixedIDGenerator{},
		Now:    clock.Now,
	}
}

// execute runs the CLI end to end through cobra and captures both streams.
func execute(t *testing.T, env *Env, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand(env)
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeTemplate lays out a small but representative template tree.
func writeTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), dir, map[string]string{
		".gitcore-version":                     "2.1\n",
		"AGENTS.md":                            "# Agent handbook\n",
		"CLAUDE.md":                            "# Claude entry point\n",
		"README.md":                            "# Git-Core Protocol\n",
		"core/ARCHITECTURE.md":                 "# Architecture (template placeholder)\n",
		"core/CONTEXT_LOG.md":                  "# Context log (template placeholder)\n",
		"core/PROTOCOL.md":                     "# Protocol rules\n",
		".github/workflows/planner-agent.yml":  "name: planner\n",
		".github/workflows/guardian-agent.yml": "name: guardian\n",
		".github/workflows/release.yml":        "name: release\n",
		"scripts/context-snapshot.sh":          "#!/bin/sh\n",
	})
	return dir
}

func readProjectFile(t *testing.T, project, rel string) string {
	t.Helper()
	data, err := vfs.NewRealFS().ReadFile(filepath.Join(project, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func projectHas(project, rel string) bool {
	_, err := vfs.NewRealFS().Stat(filepath.Join(project, filepath.FromSlash(rel)))
	return err == nil
}

func TestInstallFresh(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", template, "--yes", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "installed 2.1")
	assert.Contains(t, stdout, "next: describe your system in core/ARCHITECTURE.md")

	assert.Equal(t, "# Protocol rules\n", readProjectFile(t, project, "core/PROTOCOL.md"))
	assert.Equal(t, "name: planner\n", readProjectFile(t, project, ".github/workflows/planner-agent.yml"))
	assert.Equal(t, "2.1\n", readProjectFile(t, project, ".gitcore-version"))

	// Upstream release machinery never lands in a project.
	assert.False(t, projectHas(project, ".github/workflows/release.yml"))

	// The run landed in the journal.
	assert.True(t, projectHas(project, ".gitcore/journal.db"))
}

func TestInstallPrompt(t *testing.T) {
	tests := []struct {
		name      string
		stdin     string
		installed bool
	}{
		{"accepts_yes", "y\n", true},
		{"accepts_yes_word", "YES\n", true},
		{"declines_no", "n\n", false},
		{"declines_empty_line", "\n", false},
		{"declines_closed_stdin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := writeTemplate(t)
			project := t.TempDir()

			stdout, _, err := execute(t, testEnv(nil), tt.stdin,
				"install", "--source", template, "-C", project)

			if tt.installed {
				require.NoError(t, err)
				assert.True(t, projectHas(project, "AGENTS.md"))
				return
			}
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, stdout, "cancelled")
			assert.False(t, projectHas(project, "AGENTS.md"))
			assert.False(t, projectHas(project, ".gitcore"))
		})
	}
}

func TestInstallDryRun(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", template, "--dry-run", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dry run (install)")
	assert.Contains(t, stdout, "dry run: nothing was changed")
	assert.Contains(t, stdout, "core/PROTOCOL.md")

	// Nothing materialized, not even the journal.
	assert.False(t, projectHas(project, "AGENTS.md"))
	assert.False(t, projectHas(project, ".gitcore"))
}

func TestInstallSafeUpgradePreservesUserArtifacts(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		".gitcore-version":                    "1.0\n",
		"core/ARCHITECTURE.md":                "custom notes\n",
		"core/CONTEXT_LOG.md":                 "decision log\n",
		".github/workflows/custom.yml":        "name: custom\n",
		".github/workflows/planner-agent.yml": "name: old planner\n",
	})

	// No --yes and no stdin: upgrades never prompt.
	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--upgrade", "--source", template, "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "upgraded 1.0 -> 2.1")

	// User-owned artifacts and the custom workflow came back after the
	// managed dirs were replaced.
	assert.Equal(t, "custom notes\n", readProjectFile(t, project, "core/ARCHITECTURE.md"))
	assert.Equal(t, "decision log\n", readProjectFile(t, project, "core/CONTEXT_LOG.md"))
	assert.Equal(t, "name: custom\n", readProjectFile(t, project, ".github/workflows/custom.yml"))

	// Reserved workflows track the template.
	assert.Equal(t, "name: planner\n", readProjectFile(t, project, ".github/workflows/planner-agent.yml"))
	assert.Equal(t, "2.1\n", readProjectFile(t, project, ".gitcore-version"))

	assert.Contains(t, stdout, "restored 3")
}

func TestInstallForceOverwritesArchitecture(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		".gitcore-version":     "1.0\n",
		"core/ARCHITECTURE.md": "custom notes\n",
		"core/CONTEXT_LOG.md":  "decision log\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--force", "--source", template, "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "force-upgraded 1.0 -> 2.1")

	// Force hands the architecture doc to the template; the context log
	// survives every mode.
	assert.Equal(t, "# Architecture (template placeholder)\n",
		readProjectFile(t, project, "core/ARCHITECTURE.md"))
	assert.Equal(t, "decision log\n", readProjectFile(t, project, "core/CONTEXT_LOG.md"))
}

func TestInstallJSON(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", template, "--yes", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-0001", data["run_id"])
	assert.Equal(t, "install", data["mode"])
	assert.Equal(t, "0.0.0", data["version_before"])
	assert.Equal(t, "2.1", data["version_after"])
	assert.Equal(t, "dir:"+template, data["source"])
	assert.NotEmpty(t, data["plan_digest"])
}

func TestInstallFetchFailure(t *testing.T) {
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", filepath.Join(project, "no-such-template"), "--yes", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E004]")
}

func TestInstallRefRejectedForLocalSource(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", template, "--ref", "v2", "--yes", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "--ref only applies to git sources")
}

func TestInstallReorganize(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"NOTES.md": "scratch notes\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "",
		"install", "--source", template, "--yes", "--reorganize", "-C", project)
	require.NoError(t, err)

	assert.Equal(t, "scratch notes\n", readProjectFile(t, project, "docs/NOTES.md"))
	assert.False(t, projectHas(project, "NOTES.md"))
	assert.Contains(t, stdout, "moved 1")
}

func TestInstallIdempotent(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()
	env := testEnv(nil)

	_, _, err := execute(t, env, "", "install", "--source", template, "--yes", "-C", project)
	require.NoError(t, err)

	// Second install skips everything that is already there.
	stdout, _, err := execute(t, env, "", "install", "--source", template, "--yes", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "copied 0")
}
