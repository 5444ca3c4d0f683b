// Package telemetry collects weekly adoption metrics and submits them to the
// official protocol repository.
//
// Metrics are ordered by cost: order 1 is raw tracker counts, order 2 derives
// usage signals from issue bodies and commit history, order 3 counts protocol
// feedback labels. Each order degrades independently so a partial environment
// still produces a submission. Identity is anonymous by default; dogfooding
// runs (--internal) submit named, labeled issues instead of discussions.
package telemetry

import (
	"encoding/json"
	"fmt"
)

const (
	// SchemaVersion is the federated telemetry wire schema.
	SchemaVersion = "2.1"
	// ProtocolVersion is the protocol release the metrics describe.
	ProtocolVersion = "2.1"

	// OfficialOwner and OfficialRepo locate the aggregation repository.
	OfficialOwner = "iberi22"
	OfficialRepo  = "Git-Core-Protocol"
	// OfficialSlug is owner/name, as gh --repo wants it.
	OfficialSlug = OfficialOwner + "/" + OfficialRepo

	// InternalLabel marks dogfooding submissions in the official tracker.
	InternalLabel = "telemetry-internal"
)

// Submission methods.
const (
	MethodIssue      = "issue"      // internal mode
	MethodDiscussion = "discussion" // public mode
)

// Metrics is one weekly submission payload.
type Metrics struct {
	SchemaVersion    string   `json:"schema_version"`
	SubmissionMethod string   `json:"submission_method"`
	ProjectID        string   `json:"project_id"`
	Anonymous        bool     `json:"anonymous"`
	Timestamp        string   `json:"timestamp"`
	Week             int      `json:"week"`
	Year             int      `json:"year"`
	ProtocolVersion  string   `json:"protocol_version"`
	Order1           Order1   `json:"order1"`
	Order2           Order2   `json:"order2"`
	Order3           Order3   `json:"order3"`
	Patterns         []string `json:"patterns,omitempty"`
}

// Order1 is raw tracker activity.
type Order1 struct {
	IssuesOpen        int `json:"issues_open"`
	IssuesClosedTotal int `json:"issues_closed_total"`
	PrsOpen           int `json:"prs_open"`
	PrsMergedTotal    int `json:"prs_merged_total"`
}

// Order2 is derived usage signals, percentages rounded to one decimal.
type Order2 struct {
	AgentStateUsagePct float64 `json:"agent_state_usage_pct"`
	AtomicCommitRatio  float64 `json:"atomic_commit_ratio"`
	SampleSize         int     `json:"sample_size"`
}

// Order3 is protocol feedback volume.
type Order3 struct {
	FrictionReports    int `json:"friction_reports"`
	EvolutionProposals int `json:"evolution_proposals"`
}

// Title is the submission title for m, keyed to project and ISO week so the
// aggregator can dedupe.
func Title(m *Metrics) string {
	if m.SubmissionMethod == MethodIssue {
		return fmt.Sprintf("[Telemetry-Internal] %s - Week %d (%d)", m.ProjectID, m.Week, m.Year)
	}
	return fmt.Sprintf("📊 %s - Week %d (%d)", m.ProjectID, m.Week, m.Year)
}

// PayloadJSON renders m as the pretty JSON embedded in submission bodies and
// printed on dry runs.
func PayloadJSON(m *Metrics) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("telemetry: render payload: %w", err)
	}
	return string(data), nil
}

// detectPatterns flags the adoption signals the aggregator watches for.
func detectPatterns(m *Metrics) []string {
	var patterns []string
	if m.Order2.AgentStateUsagePct < 50.0 {
		patterns = append(patterns, "low_agent_state_adoption")
	}
	if m.Order2.AtomicCommitRatio < 70.0 {
		patterns = append(patterns, "low_atomic_commit_ratio")
	}
	if m.Order3.FrictionReports > 5 {
		patterns = append(patterns, "high_friction")
	}
	return patterns
}
