package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/syncer"
	"github.com/iberi22/gitcore/internal/testutil"
	"github.com/iberi22/gitcore/internal/vfs"
)

const issueDoc = `---
title: Flaky timeout in release pipeline
labels: [friction]
---

The release workflow times out on slow runners.
`

func TestSyncCreatesIssues(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"issues/timeout.md": issueDoc,
	})
	runner := execx.NewStubRunner()
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{Stdout: "https://github.com/o/r/issues/12\n"},
	}

	stdout, _, err := execute(t, testEnv(runner), "", "sync", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synced: created 1, updated 0")

	// The mapping landed next to the files.
	data, err := vfs.NewRealFS().ReadFile(filepath.Join(project, "issues", syncer.MappingFile))
	require.NoError(t, err)
	var mapped map[string]int
	require.NoError(t, json.Unmarshal(data, &mapped))
	assert.Equal(t, 12, mapped["timeout.md"])
}

func TestSyncUpdatesMappedIssues(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"issues/timeout.md": issueDoc,
	})
	mappingPath := filepath.Join(project, "issues", syncer.MappingFile)
	require.NoError(t, vfs.NewRealFS().WriteFile(mappingPath, []byte(`{"timeout.md": 12}`+"\n"), 0o644))
	runner := execx.NewStubRunner()
	runner.Default = &execx.StubResponse{}

	stdout, _, err := execute(t, testEnv(runner), "", "sync", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synced: created 0, updated 1")

	require.NotEmpty(t, runner.CallLines())
	assert.Contains(t, runner.CallLines()[0], "gh issue edit 12")
}

func TestSyncDryRun(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"issues/timeout.md": issueDoc,
	})
	runner := execx.NewStubRunner()

	stdout, _, err := execute(t, testEnv(runner), "", "sync", "--dry-run", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "would sync: created 1, updated 0")

	// The tracker was never called and no mapping was written.
	assert.Empty(t, runner.Calls)
	assert.False(t, projectHas(project, "issues/"+syncer.MappingFile))
}

func TestSyncNothingToPush(t *testing.T) {
	project := t.TempDir()

	stdout, _, err := execute(t, testEnv(nil), "", "sync", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synced: created 0, updated 0")
}

func TestSyncBadFileIsNotFatal(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"issues/good.md": issueDoc,
		"issues/bad.md":  "no frontmatter here\n",
	})
	runner := execx.NewStubRunner()
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{Stdout: "https://github.com/o/r/issues/3\n"},
	}

	stdout, _, err := execute(t, testEnv(runner), "", "sync", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synced: created 1, updated 0")
	assert.Contains(t, stdout, "! 1 file(s) failed")
}

func TestSyncTargetsRepoFlag(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"issues/timeout.md": issueDoc,
	})
	runner := execx.NewStubRunner()
	runner.Default = &execx.StubResponse{
		Result: execx.CmdResult{Stdout: "https://github.com/acme/widgets/issues/5\n"},
	}

	_, _, err := execute(t, testEnv(runner), "", "sync", "--repo", "acme/widgets", "-C", project)
	require.NoError(t, err)

	for _, line := range runner.CallLines() {
		if strings.HasPrefix(line, "gh issue create ") {
			assert.Contains(t, line, "--repo acme/widgets")
		}
	}
}
