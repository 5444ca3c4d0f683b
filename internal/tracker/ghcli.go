package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
)

// GHCLI implements Tracker by shelling out to gh.
type GHCLI struct {
	Runner execx.Runner
	Repo   string // "owner/name"; empty means gh's cwd context
	Dir    string // working directory for gh; empty means inherited
}

// issueListFields is what every list query asks gh to emit.
const issueListFields = "number,title,state,labels,body"

type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Body string `json:"body"`
}

func (g *GHCLI) ListIssues(ctx context.Context, f Filter) ([]Issue, error) {
	state := f.State
	if state == "" {
		state = "open"
	}
	args := []string{"issue", "list", "--state", state}
	for _, l := range f.Labels {
		args = append(args, "--label", l)
	}
	if f.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(f.Limit))
	}
	args = append(args, "--json", issueListFields)

	out, err := g.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	var raw []ghIssue
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("list issues: parse gh output: %w", err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		labels := make([]string, 0, len(r.Labels))
		for _, l := range r.Labels {
			labels = append(labels, l.Name)
		}
		issues = append(issues, Issue{
			Number: r.Number,
			Title:  r.Title,
			State:  r.State,
			Labels: labels,
			Body:   r.Body,
		})
	}
	return issues, nil
}

// CreateIssue returns the new issue's number, parsed from the URL gh prints.
func (g *GHCLI) CreateIssue(ctx context.Context, title, body string, labels []string) (int, error) {
	args := []string{"issue", "create", "--title", title, "--body", body}
	for _, l := range labels {
		args = append(args, "--label", l)
	}
	out, err := g.run(ctx, args)
	if err != nil {
		return 0, fmt.Errorf("create issue %q: %w", title, err)
	}
	number, err := parseIssueURL(out)
	if err != nil {
		return 0, fmt.Errorf("create issue %q: %w", title, err)
	}
	return number, nil
}

func (g *GHCLI) EditIssue(ctx context.Context, number int, f Fields) error {
	args := []string{"issue", "edit", strconv.Itoa(number)}
	if f.Title != "" {
		args = append(args, "--title", f.Title)
	}
	if f.Body != "" {
		args = append(args, "--body", f.Body)
	}
	for _, l := range f.AddLabels {
		args = append(args, "--add-label", l)
	}
	if _, err := g.run(ctx, args); err != nil {
		return fmt.Errorf("edit issue #%d: %w", number, err)
	}
	return nil
}

func (g *GHCLI) CommentOnIssue(ctx context.Context, number int, body string) error {
	if _, err := g.run(ctx, []string{"issue", "comment", strconv.Itoa(number), "--body", body}); err != nil {
		return fmt.Errorf("comment on issue #%d: %w", number, err)
	}
	return nil
}

// CreateLabel ensures a label exists. --force updates color and description
// on an existing label instead of failing, which keeps seeding idempotent.
func (g *GHCLI) CreateLabel(ctx context.Context, name, description, color string) error {
	args := []string{"label", "create", name, "--description", description, "--color", color, "--force"}
	if _, err := g.run(ctx, args); err != nil {
		return fmt.Errorf("create label %q: %w", name, err)
	}
	return nil
}

func (g *GHCLI) run(ctx context.Context, args []string) (string, error) {
	if g.Repo != "" {
		args = append(args, "--repo", g.Repo)
	}
	res, err := g.Runner.Run(ctx, "gh", args, execx.RunOpts{Dir: g.Dir})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("gh exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// parseIssueURL extracts the issue number from gh's created-issue URL, the
// last path segment of the last non-empty output line.
func parseIssueURL(out string) (int, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return 0, fmt.Errorf("no issue URL in gh output")
	}
	seg := last[strings.LastIndex(last, "/")+1:]
	number, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("parse issue URL %q: %w", last, err)
	}
	return number, nil
}
