package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/testutil"
	"github.com/iberi22/gitcore/internal/vfs"
)

// healthyRunner stubs every probe doctor makes on a good machine.
func healthyRunner() *execx.StubRunner {
	runner := execx.NewStubRunner()
	runner.Stub("git --version", "git version 2.44.0\n")
	runner.Stub("gh --version", "gh version 2.52.0 (2024-06-24)\nhttps://github.com/cli/cli/releases/tag/v2.52.0\n")
	runner.Stub("gh auth status", "github.com: logged in\n")
	return runner
}

func TestDoctorHealthy(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		".gitcore-version":     "2.1\n",
		"core/ARCHITECTURE.md": "# Arch\n",
	})

	stdout, _, err := execute(t, testEnv(healthyRunner()), "", "doctor", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "git version 2.44.0")
	assert.Contains(t, stdout, "gh version 2.52.0")
	assert.Contains(t, stdout, "authenticated")
	assert.Contains(t, stdout, "installed 2.1")
	assert.Contains(t, stdout, "core/ present")
	assert.Contains(t, stdout, "no runs recorded")
	assert.Contains(t, stdout, "ready")
	assert.NotContains(t, stdout, "✗")
}

func TestDoctorMissingGit(t *testing.T) {
	project := t.TempDir()
	runner := healthyRunner()
	runner.MarkMissing("git")

	stdout, _, err := execute(t, testEnv(runner), "", "doctor", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "✗")
	assert.Contains(t, stdout, "not found on PATH")
	assert.Contains(t, stdout, "environment not ready")
}

func TestDoctorUnauthenticated(t *testing.T) {
	project := t.TempDir()
	runner := healthyRunner()
	runner.StubExit("gh auth status", 1, "You are not logged into any GitHub hosts.")

	stdout, _, err := execute(t, testEnv(runner), "", "doctor", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "not authenticated; run 'gh auth login'")
}

func TestDoctorOptionalProbesNeverFail(t *testing.T) {
	// Empty project: protocol and config probes warn, verdict stays ready.
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(healthyRunner()), "", "doctor", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "!")
	assert.Contains(t, stdout, "not installed; run 'gitcore install'")
	assert.Contains(t, stdout, "core/ missing")
	assert.Contains(t, stdout, "ready")
}

func TestDoctorCountsJournalRuns(t *testing.T) {
	template := writeTemplate(t)
	project := t.TempDir()
	env := testEnv(healthyRunner())

	_, _, err := execute(t, env, "", "install", "--source", template, "--yes", "-C", project)
	require.NoError(t, err)

	stdout, _, err := execute(t, env, "", "doctor", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 run(s) recorded")
}

func TestDoctorJSONUnhealthy(t *testing.T) {
	project := t.TempDir()
	runner := healthyRunner()
	runner.MarkMissing("gh")

	stdout, _, err := execute(t, testEnv(runner), "", "doctor", "-C", project, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   DoctorReport `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotReady, resp.Error.Code)
	assert.False(t, resp.Data.Healthy)
	assert.Len(t, resp.Data.Checks, 6)
}

func TestDoctorJSONHealthy(t *testing.T) {
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(healthyRunner()), "", "doctor", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   DoctorReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Healthy)
}
