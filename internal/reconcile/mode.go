package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects how the plan treats content that already exists in the project.
type Mode int

const (
	// ModeInstall merges: template files land only where the project has none.
	ModeInstall Mode = iota
	// ModeSafeUpgrade replaces managed dirs wholesale and restores every
	// user-owned artifact afterwards.
	ModeSafeUpgrade
	// ModeForceUpgrade is SafeUpgrade except the architecture file is not
	// restored, so the template's copy wins.
	ModeForceUpgrade
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSafeUpgrade:
		return "safe-upgrade"
	case ModeForceUpgrade:
		return "force-upgrade"
	default:
		return "install"
	}
}

// IsUpgrade reports whether the mode replaces managed dirs wholesale.
func (m Mode) IsUpgrade() bool {
	return m == ModeSafeUpgrade || m == ModeForceUpgrade
}

// ParseMode maps a flag value onto a Mode. "upgrade" is an alias for
// safe-upgrade and "force" for force-upgrade; matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "install":
		return ModeInstall, nil
	case "upgrade", "safe-upgrade":
		return ModeSafeUpgrade, nil
	case "force", "force-upgrade":
		return ModeForceUpgrade, nil
	}
	return ModeInstall, fmt.Errorf("unknown mode %q (want install, safe-upgrade, or force-upgrade)", s)
}

// MarshalJSON renders the mode as its wire name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts any spelling ParseMode accepts.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
