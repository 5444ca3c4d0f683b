// Package version reads and compares template version markers.
//
// Versions are advisory. They name what a tree claims to be for reports and
// prompts; no reconciliation decision branches on a comparison.
package version

import (
	"errors"
	iofs "io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iberi22/gitcore/internal/vfs"
)

const (
	// Absent is reported when a tree has no marker file: the protocol was
	// never installed there.
	Absent = "0.0.0"
	// Unknown is reported when a marker exists but cannot be read, or a
	// remote query fails.
	Unknown = "unknown"
)

// Current returns the version recorded in the marker file under root.
// A missing marker means Absent; an unreadable or empty one means Unknown.
func Current(fsys vfs.FS, root, markerRel string) string {
	data, err := fsys.ReadFile(filepath.Join(root, filepath.FromSlash(markerRel)))
	if errors.Is(err, iofs.ErrNotExist) {
		return Absent
	}
	if err != nil {
		return Unknown
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return Unknown
	}
	return v
}

// Known reports whether v carries real information.
func Known(v string) bool {
	return v != "" && v != Absent && v != Unknown
}

// Compare orders two marker values numerically by dotted components, with
// missing components as zero and non-numeric components compared as strings.
// Unknown and Absent sort before everything real. The result is for display
// only.
func Compare(a, b string) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra < 2 {
		return 0
	}

	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := part(as, i), part(bs, i)
		an, aok := atoi(av)
		bn, bok := atoi(bv)
		switch {
		case aok && bok:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		case aok != bok:
			// Numeric beats non-numeric ("1.2.3" > "1.2.rc1").
			if aok {
				return 1
			}
			return -1
		default:
			if c := strings.Compare(av, bv); c != 0 {
				return c
			}
		}
	}
	return 0
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate, current string) bool {
	return Compare(candidate, current) > 0
}

func rank(v string) int {
	switch v {
	case Unknown, "":
		return 0
	case Absent:
		return 1
	default:
		return 2
	}
}

func part(parts []string, i int) string {
	if i >= len(parts) {
		return "0"
	}
	return parts[i]
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
