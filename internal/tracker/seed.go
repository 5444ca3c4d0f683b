package tracker

import (
	"context"
	"fmt"
)

// Label is a tracker label the protocol relies on.
type Label struct {
	Name        string
	Description string
	Color       string
}

// ProtocolLabels is the label set every protocol-managed repository carries.
// Workflow routing reads the agent labels; telemetry and the validator read
// the rest.
var ProtocolLabels = []Label{
	{Name: "gitcore", Description: "Git-Core Protocol management", Color: "0E8A16"},
	{Name: "friction", Description: "Protocol friction report", Color: "D93F0B"},
	{Name: "evolution", Description: "Protocol evolution proposal", Color: "1D76DB"},
	{Name: "telemetry-internal", Description: "Internal telemetry submission", Color: "5319E7"},
	{Name: "copilot", Description: "Routed to the Copilot agent", Color: "8250DF"},
	{Name: "jules", Description: "Routed to the Jules agent", Color: "F9D0C4"},
	{Name: "priority: high", Description: "Needs attention this week", Color: "B60205"},
	{Name: "priority: medium", Description: "Schedule normally", Color: "FBCA04"},
	{Name: "priority: low", Description: "Backlog", Color: "C2E0C6"},
}

// SetupIssue is an onboarding issue seeded into fresh repositories.
type SetupIssue struct {
	Title  string
	Body   string
	Labels []string
}

var setupIssues = []SetupIssue{
	{
		Title: "[Setup] Describe your architecture in core/ARCHITECTURE.md",
		Body: "The protocol installed a placeholder `core/ARCHITECTURE.md`.\n\n" +
			"Replace it with your project's real architecture: components, data flow,\n" +
			"and the decisions agents must respect. Agents read this file before\n" +
			"every task, and upgrades never overwrite it.\n",
		Labels: []string{"gitcore"},
	},
	{
		Title: "[Setup] Review the agent workflows under .github/workflows",
		Body: "The protocol shipped its reserved workflows. Check that the schedules\n" +
			"fit your plan (see `gitcore ci-detect`), then add your own workflows\n" +
			"alongside them; custom workflow files survive upgrades.\n",
		Labels: []string{"gitcore"},
	},
}

// SeedReport summarizes one seeding pass.
type SeedReport struct {
	LabelsEnsured int      `json:"labels_ensured"`
	IssuesCreated int      `json:"issues_created"`
	IssuesSkipped int      `json:"issues_skipped"`
	CreatedTitles []string `json:"created_titles,omitempty"`
}

// Seed ensures the protocol labels and setup issues exist. Idempotent: labels
// are upserted, and an issue whose title already exists in any state is left
// alone.
func Seed(ctx context.Context, tr Tracker) (*SeedReport, error) {
	report := &SeedReport{}

	for _, l := range ProtocolLabels {
		if err := tr.CreateLabel(ctx, l.Name, l.Description, l.Color); err != nil {
			return report, fmt.Errorf("seed: %w", err)
		}
		report.LabelsEnsured++
	}

	existing, err := tr.ListIssues(ctx, Filter{State: "all", Labels: []string{"gitcore"}, Limit: 200})
	if err != nil {
		return report, fmt.Errorf("seed: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, issue := range existing {
		have[issue.Title] = true
	}

	for _, si := range setupIssues {
		if have[si.Title] {
			report.IssuesSkipped++
			continue
		}
		if _, err := tr.CreateIssue(ctx, si.Title, si.Body, si.Labels); err != nil {
			return report, fmt.Errorf("seed: %w", err)
		}
		report.IssuesCreated++
		report.CreatedTitles = append(report.CreatedTitles, si.Title)
	}

	return report, nil
}
