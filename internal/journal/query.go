package journal

import (
	"strings"
	"time"
)

// Filter narrows a history query. Zero values mean "no constraint".
type Filter struct {
	Mode       string    // exact mode name
	Since      time.Time // lower bound on started_at, inclusive
	OnlyFailed bool      // runs with at least one failed path
	Limit      int       // max rows; 0 means unlimited
}

// compileHistory builds the parameterized history query. Values are never
// interpolated, and every query carries ORDER BY with a deterministic
// tiebreaker so identical journals list identically.
func compileHistory(f Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, started_at, finished_at, mode, dry_run, source, version_before, version_after, plan_digest,
		       copied, skipped, deleted, migrated, excluded, moved, restored, failed
		FROM runs`)

	var where []string
	var params []any
	if f.Mode != "" {
		where = append(where, "mode = ?")
		params = append(params, f.Mode)
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		params = append(params, f.Since.UTC().Format(time.RFC3339))
	}
	if f.OnlyFailed {
		where = append(where, "failed > 0")
	}
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	sb.WriteString("\n\t\tORDER BY started_at DESC, id ASC COLLATE BINARY")

	if f.Limit > 0 {
		sb.WriteString("\n\t\tLIMIT ?")
		params = append(params, f.Limit)
	}
	return sb.String(), params
}
