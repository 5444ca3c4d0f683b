package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iberi22/gitcore/internal/vfs"
)

func TestCurrent(t *testing.T) {
	fsys := vfs.NewMemFS()
	require.NoError(t, fsys.MkdirAll("/prj", 0o755))

	assert.Equal(t, Absent, Current(fsys, "/prj", ".gitcore-version"))

	require.NoError(t, fsys.WriteFile("/prj/.gitcore-version", []byte("1.4.0\n"), 0o644))
	assert.Equal(t, "1.4.0", Current(fsys, "/prj", ".gitcore-version"))

	require.NoError(t, fsys.WriteFile("/prj/.gitcore-version", []byte("  \n"), 0o644))
	assert.Equal(t, Unknown, Current(fsys, "/prj", ".gitcore-version"))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("1.2.0"))
	assert.False(t, Known(Absent))
	assert.False(t, Known(Unknown))
	assert.False(t, Known(""))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.2.0", 0},
		{"1.2.1", "1.2.0", 1},
		{"1.2.0", "1.10.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.2", "1.2.0", 0},
		{"v1.3.0", "1.2.0", 1},
		{"1.2.3", "1.2.rc1", 1},
		{"1.2.rc1", "1.2.rc2", -1},
		{Absent, "0.1.0", -1},
		{Unknown, Absent, -1},
		{Unknown, Unknown, 0},
		{Absent, Absent, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
		assert.Equal(t, -tt.want, Compare(tt.b, tt.a), "Compare(%q, %q)", tt.b, tt.a)
	}
}

func TestIsNewer(t *testing.T) {
	assert.True(t, IsNewer("1.3.0", "1.2.9"))
	assert.True(t, IsNewer("0.1.0", Absent))
	assert.False(t, IsNewer("1.2.0", "1.2.0"))
	assert.False(t, IsNewer(Unknown, "1.0.0"))
}
