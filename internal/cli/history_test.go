package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seededProject installs and then safe-upgrades so the journal holds two
// runs: run-0001 (install) and run-0002 (safe-upgrade).
func seededProject(t *testing.T) (string, *Env) {
	t.Helper()
	template := writeTemplate(t)
	project := t.TempDir()
	env := testEnv(nil)

	_, _, err := execute(t, env, "", "install", "--source", template, "--yes", "-C", project)
	require.NoError(t, err)
	_, _, err = execute(t, env, "", "install", "--upgrade", "--source", template, "-C", project)
	require.NoError(t, err)

	return project, env
}

func TestHistoryEmpty(t *testing.T) {
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "", "history", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no runs recorded")
}

func TestHistoryEmptyJSON(t *testing.T) {
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "", "history", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data)
}

func TestHistoryListsRuns(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "run-0001")
	assert.Contains(t, stdout, "run-0002")
	assert.Contains(t, stdout, "safe-upgrade")
	assert.Contains(t, stdout, "2025-03-01 12:00")
	assert.Contains(t, stdout, "0.0.0 -> 2.1")
	assert.Contains(t, stdout, "2.1 -> 2.1")
}

func TestHistoryModeFilter(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "--mode", "safe-upgrade", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run-0002")
	assert.NotContains(t, stdout, "run-0001")
}

func TestHistorySinceFilter(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "--since", "2025-03-02", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no matching runs")

	stdout, _, err = execute(t, env, "", "history", "--since", "2025-03-01", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run-0001")
}

func TestHistoryInvalidSince(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "--since", "yesterday", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E001]")
}

func TestHistoryLimit(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "--limit", "1", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestHistoryJSON(t *testing.T) {
	project, env := seededProject(t)

	stdout, _, err := execute(t, env, "", "history", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 2)
	for _, e := range resp.Data {
		assert.NotEmpty(t, e.RunID)
		assert.NotEmpty(t, e.Mode)
		assert.Equal(t, "2.1", e.VersionAfter)
	}
}
