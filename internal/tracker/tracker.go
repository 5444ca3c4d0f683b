// Package tracker talks to the project's issue tracker.
//
// The only implementation drives the GitHub CLI: gh already holds the
// credentials and repo context, so no token plumbing or REST client lives
// here. Everything runs through an injected execx.Runner for testability.
package tracker

import "context"

// Issue is the tracker-side record, flattened for local use.
type Issue struct {
	Number int
	Title  string
	State  string
	Labels []string
	Body   string
}

// Filter narrows ListIssues. Zero values mean "no constraint"; State
// defaults to open.
type Filter struct {
	State  string // open, closed, all
	Labels []string
	Limit  int
}

// Fields carries issue edits. Empty fields are left unchanged.
type Fields struct {
	Title     string
	Body      string
	AddLabels []string
}

// Tracker is the capability surface the protocol needs from a tracker.
type Tracker interface {
	ListIssues(ctx context.Context, f Filter) ([]Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (int, error)
	EditIssue(ctx context.Context, number int, f Fields) error
	CommentOnIssue(ctx context.Context, number int, body string) error
	CreateLabel(ctx context.Context, name, description, color string) error
}
