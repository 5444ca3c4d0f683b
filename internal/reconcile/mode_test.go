package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"install", ModeInstall, false},
		{"", ModeInstall, false},
		{"Install", ModeInstall, false},
		{"upgrade", ModeSafeUpgrade, false},
		{"safe-upgrade", ModeSafeUpgrade, false},
		{"SAFE-UPGRADE", ModeSafeUpgrade, false},
		{"force", ModeForceUpgrade, false},
		{"force-upgrade", ModeForceUpgrade, false},
		{"  force  ", ModeForceUpgrade, false},
		{"reinstall", ModeInstall, true},
		{"delete-everything", ModeInstall, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "install", ModeInstall.String())
	assert.Equal(t, "safe-upgrade", ModeSafeUpgrade.String())
	assert.Equal(t, "force-upgrade", ModeForceUpgrade.String())
}

func TestModeIsUpgrade(t *testing.T) {
	assert.False(t, ModeInstall.IsUpgrade())
	assert.True(t, ModeSafeUpgrade.IsUpgrade())
	assert.True(t, ModeForceUpgrade.IsUpgrade())
}

func TestModeJSONRoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeInstall, ModeSafeUpgrade, ModeForceUpgrade} {
		data, err := json.Marshal(m)
		require.NoError(t, err)

		var back Mode
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, m, back)
	}

	var m Mode
	assert.Error(t, json.Unmarshal([]byte(`"sideways"`), &m))
}
