package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/vfs"
)

func TestMappingAddAndLookup(t *testing.T) {
	m := NewMapping()
	m.Add("friction-001.md", 12)
	m.Add("evolution-002.md", 15)

	n, ok := m.GetIssue("friction-001.md")
	require.True(t, ok)
	assert.Equal(t, 12, n)

	f, ok := m.GetFile(15)
	require.True(t, ok)
	assert.Equal(t, "evolution-002.md", f)

	assert.True(t, m.ContainsFile("friction-001.md"))
	assert.True(t, m.ContainsIssue(12))
	assert.False(t, m.ContainsFile("missing.md"))
	assert.False(t, m.ContainsIssue(99))
	assert.Equal(t, 2, m.Len())
}

func TestMappingAddDisplacesStalePairs(t *testing.T) {
	m := NewMapping()
	m.Add("a.md", 1)

	// Remapping the file drops its old issue.
	m.Add("a.md", 2)
	assert.False(t, m.ContainsIssue(1))
	n, _ := m.GetIssue("a.md")
	assert.Equal(t, 2, n)

	// Remapping the issue drops its old file.
	m.Add("b.md", 2)
	assert.False(t, m.ContainsFile("a.md"))
	f, _ := m.GetFile(2)
	assert.Equal(t, "b.md", f)
	assert.Equal(t, 1, m.Len())
}

func TestMappingRemove(t *testing.T) {
	m := NewMapping()
	m.Add("a.md", 1)
	m.Add("b.md", 2)

	n, ok := m.RemoveByFile("a.md")
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.False(t, m.ContainsIssue(1))

	f, ok := m.RemoveByIssue(2)
	require.True(t, ok)
	assert.Equal(t, "b.md", f)
	assert.Equal(t, 0, m.Len())

	_, ok = m.RemoveByFile("gone.md")
	assert.False(t, ok)
	_, ok = m.RemoveByIssue(7)
	assert.False(t, ok)
}

func TestLoadMappingMissingFile(t *testing.T) {
	fsys := vfs.NewMemFS()

	m, err := LoadMapping(fsys, "/prj/issues/.issue-mapping.json")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoadMappingMalformed(t *testing.T) {
	fsys := vfs.NewMemFS()
	require.NoError(t, fsys.MkdirAll("/prj/issues", 0o755))
	require.NoError(t, fsys.WriteFile("/prj/issues/.issue-mapping.json", []byte("not json"), 0o644))

	_, err := LoadMapping(fsys, "/prj/issues/.issue-mapping.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load mapping")
}

func TestMappingSaveLoadRoundTrip(t *testing.T) {
	fsys := vfs.NewMemFS()
	require.NoError(t, fsys.MkdirAll("/prj/issues", 0o755))
	path := "/prj/issues/.issue-mapping.json"

	m := NewMapping()
	m.Add("friction-001.md", 12)
	m.Add("evolution-002.md", 15)
	require.NoError(t, m.Save(fsys, path))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"evolution-002.md\": 15,\n  \"friction-001.md\": 12\n}\n", string(data))

	loaded, err := LoadMapping(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	n, ok := loaded.GetIssue("friction-001.md")
	require.True(t, ok)
	assert.Equal(t, 12, n)
}
