package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/telemetry"
)

// telemetryRunner stubs the git probes and answers every gh list with an
// empty array.
func telemetryRunner() *execx.StubRunner {
	runner := execx.NewStubRunner()
	runner.Stub("git config --get remote.origin.url", "https://github.com/acme/widgets.git\n")
	runner.Stub("git log --oneline -50", "abc1234 feat(core): add retry\ndef5678 wip\n")
	for _, cmd := range []string{
		"gh issue list --state open --json number",
		"gh issue list --state closed --limit 100 --json number",
		"gh pr list --state open --json number",
		"gh pr list --state merged --limit 100 --json number",
		"gh issue list --limit 10 --json number",
		"gh issue list --label friction --state all --json number",
		"gh issue list --label evolution --state all --json number",
	} {
		runner.Stub(cmd, "[]")
	}
	return runner
}

func TestTelemetryDryRun(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "--dry-run", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Telemetry dry run")
	// Public submissions are anonymous by default.
	assert.Contains(t, stdout, "would submit: 📊 anon-")
	assert.Contains(t, stdout, `"schema_version": "2.1"`)
	assert.Contains(t, stdout, `"week": 9`)
	// One of two sampled commits is conventional.
	assert.Contains(t, stdout, `"atomic_commit_ratio": 50`)

	for _, line := range runner.CallLines() {
		assert.False(t, strings.HasPrefix(line, "gh api graphql"), "dry run must not submit: %s", line)
		assert.False(t, strings.HasPrefix(line, "gh issue create"), "dry run must not submit: %s", line)
	}
}

func TestTelemetryDryRunInternalIsNamed(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "--dry-run", "--internal", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "would submit: [Telemetry-Internal] acme/widgets - Week 9 (2025)")
	assert.Contains(t, stdout, `"anonymous": false`)
}

func TestTelemetrySubmitInternal(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{Stdout: "https://github.com/iberi22/Git-Core-Protocol/issues/42\n"},
	}

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "--internal", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "submitted: https://github.com/iberi22/Git-Core-Protocol/issues/42")

	var createLine string
	for _, line := range runner.CallLines() {
		if strings.HasPrefix(line, "gh issue create ") {
			createLine = line
		}
	}
	require.NotEmpty(t, createLine, "expected an issue create call")
	assert.Contains(t, createLine, "[Telemetry-Internal] acme/widgets")
	assert.Contains(t, createLine, "--label telemetry-internal")
	assert.Contains(t, createLine, "--repo "+telemetry.OfficialSlug)
}

func TestTelemetrySubmitPublic(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()
	// One payload serves both GraphQL calls: the category lookup reads
	// data.repository, the mutation response reads data.createDiscussion.
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{Stdout: `{"data": {
			"repository": {"id": "R_1", "discussionCategories": {"nodes": [
				{"id": "DIC_1", "name": "Telemetry Reports", "slug": "telemetry-reports"}
			]}},
			"createDiscussion": {"discussion": {"url": "https://github.com/iberi22/Git-Core-Protocol/discussions/99"}}
		}}`},
	}

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "submitted: https://github.com/iberi22/Git-Core-Protocol/discussions/99")

	var graphqlCalls int
	for _, line := range runner.CallLines() {
		if strings.HasPrefix(line, "gh api graphql") {
			graphqlCalls++
		}
	}
	assert.Equal(t, 2, graphqlCalls, "category lookup plus createDiscussion mutation")
}

func TestTelemetrySubmitFailure(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{ExitCode: 1, Stderr: "GraphQL: rate limited"},
	}

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "-C", project)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E008]")
}

func TestTelemetryDryRunJSON(t *testing.T) {
	project := t.TempDir()
	runner := telemetryRunner()

	stdout, _, err := execute(t, testEnv(runner), "", "telemetry", "--dry-run", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   telemetry.Metrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "2.1", resp.Data.SchemaVersion)
	assert.Equal(t, "discussion", resp.Data.SubmissionMethod)
	assert.True(t, resp.Data.Anonymous)
	assert.Equal(t, 2025, resp.Data.Year)
}
