package reconcile

import (
	"time"
)

// Counts aggregates per-action outcomes for summary lines.
type Counts struct {
	Copied   int `json:"copied"`
	Skipped  int `json:"skipped"`
	Deleted  int `json:"deleted"`
	Migrated int `json:"migrated"`
	Excluded int `json:"excluded"`
	Moved    int `json:"moved"`
	Restored int `json:"restored"`
	Failed   int `json:"failed"`
}

// Report is the structured outcome of one reconciliation run: what was
// planned, what happened per path, and the version transition. Reports are
// rendered for the user, stored in the run journal, and compared in golden
// tests via CanonicalJSON.
type Report struct {
	RunID         string     `json:"run_id"`
	Mode          Mode       `json:"mode"`
	DryRun        bool       `json:"dry_run"`
	Source        string     `json:"source"`
	VersionBefore string     `json:"version_before"`
	VersionAfter  string     `json:"version_after"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	PlanDigest    string     `json:"plan_digest"`
	Results       []OpResult `json:"results"`
}

// Counts tallies the results by action and outcome.
func (r *Report) Counts() Counts {
	var c Counts
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			c.Failed++
			continue
		}
		switch res.Op.Action {
		case ActionCopy:
			if res.Outcome == OutcomeApplied {
				c.Copied++
			} else {
				c.Skipped++
			}
		case ActionSkip:
			c.Skipped++
		case ActionExclude:
			c.Excluded++
		case ActionDeleteDir:
			if res.Outcome == OutcomeApplied {
				c.Deleted++
			} else {
				c.Skipped++
			}
		case ActionMigrate:
			c.Migrated++
		case ActionMove:
			if res.Outcome == OutcomeApplied {
				c.Moved++
			} else {
				c.Skipped++
			}
		case ActionRestore:
			if res.Outcome == OutcomeApplied {
				c.Restored++
			} else {
				c.Skipped++
			}
		case ActionMkdir:
			// Directory scaffolding is not worth a counter.
		}
	}
	return c
}

// Failed returns the results that could not be applied.
func (r *Report) Failed() []OpResult {
	var out []OpResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Ok reports whether every path applied or skipped cleanly.
func (r *Report) Ok() bool {
	return len(r.Failed()) == 0
}

// CanonicalJSON renders the report as RFC 8785 canonical JSON. Timestamps
// are UTC RFC 3339 so two runs under a pinned clock compare byte-for-byte.
func (r *Report) CanonicalJSON() ([]byte, error) {
	results := make([]any, 0, len(r.Results))
	for _, res := range r.Results {
		results = append(results, res.canonicalMap())
	}
	return MarshalCanonical(map[string]any{
		"run_id":         r.RunID,
		"mode":           r.Mode.String(),
		"dry_run":        r.DryRun,
		"source":         r.Source,
		"version_before": r.VersionBefore,
		"version_after":  r.VersionAfter,
		"started_at":     r.StartedAt.UTC().Format(time.RFC3339),
		"finished_at":    r.FinishedAt.UTC().Format(time.RFC3339),
		"plan_digest":    r.PlanDigest,
		"results":        results,
	})
}
