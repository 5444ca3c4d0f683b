package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/testutil"
	"github.com/iberi22/gitcore/internal/vfs"
)

func TestReorganizeMovesLooseFiles(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"NOTES.md":  "scratch notes\n",
		"DESIGN.md": "design notes\n",
		"README.md": "# readme\n",
		"AGENTS.md": "# agents\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "", "reorganize", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "moved 2 file(s) into docs/")
	assert.Equal(t, "scratch notes\n", readProjectFile(t, project, "docs/NOTES.md"))
	assert.Equal(t, "design notes\n", readProjectFile(t, project, "docs/DESIGN.md"))
	assert.False(t, projectHas(project, "NOTES.md"))

	// Preserved and protocol files stay at the root.
	assert.True(t, projectHas(project, "README.md"))
	assert.True(t, projectHas(project, "AGENTS.md"))
}

func TestReorganizeDryRun(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"NOTES.md": "scratch notes\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "", "reorganize", "--dry-run", "-C", project)
	require.NoError(t, err)

	assert.Contains(t, stdout, "docs/NOTES.md")
	assert.Contains(t, stdout, "dry run: nothing was changed")
	assert.True(t, projectHas(project, "NOTES.md"))
	assert.False(t, projectHas(project, "docs/NOTES.md"))
}

func TestReorganizeNothingToMove(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"README.md": "# readme\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "", "reorganize", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "nothing to move")
}

func TestReorganizeSkipsOccupiedDestination(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"NOTES.md":      "new notes\n",
		"docs/NOTES.md": "old notes\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "", "reorganize", "-C", project)
	require.NoError(t, err)

	// The occupied destination wins; the source stays put.
	assert.Contains(t, stdout, "moved 0 file(s)")
	assert.Equal(t, "old notes\n", readProjectFile(t, project, "docs/NOTES.md"))
	assert.Equal(t, "new notes\n", readProjectFile(t, project, "NOTES.md"))
}

func TestReorganizeJSON(t *testing.T) {
	project := t.TempDir()
	testutil.WriteTree(t, vfs.NewRealFS(), project, map[string]string{
		"NOTES.md": "scratch notes\n",
	})

	stdout, _, err := execute(t, testEnv(nil), "", "reorganize", "-C", project, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ReorganizeView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Ops, 1)
	assert.Equal(t, "docs/NOTES.md", resp.Data.Ops[0].Path)
	require.Len(t, resp.Data.Results, 1)
}
