package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iberi22/gitcore/internal/execx"
)

// atomicCommitRe matches conventional commits with a scope in oneline logs.
var atomicCommitRe = regexp.MustCompile(`^[a-f0-9]+ (feat|fix|docs|style|refactor|test|chore)\(`)

// Collector gathers metrics from the project's git history and tracker.
type Collector struct {
	Runner execx.Runner
	Dir    string           // project root; git and gh run here
	Now    func() time.Time // defaults to time.Now
	Logger *slog.Logger
}

// CollectOptions select identity and payload extras.
type CollectOptions struct {
	Internal        bool
	Anonymous       bool
	IncludePatterns bool
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Collect gathers the weekly metrics. Orders are collected independently: a
// failed order logs a warning and reports zeros instead of sinking the whole
// submission.
func (c *Collector) Collect(ctx context.Context, opts CollectOptions) *Metrics {
	now := c.now().UTC()
	year, week := now.ISOWeek()

	method := MethodDiscussion
	if opts.Internal {
		method = MethodIssue
	}

	m := &Metrics{
		SchemaVersion:    SchemaVersion,
		SubmissionMethod: method,
		ProjectID:        c.projectID(ctx, opts.Anonymous),
		Anonymous:        opts.Anonymous,
		Timestamp:        now.Format(time.RFC3339),
		Week:             week,
		Year:             year,
		ProtocolVersion:  ProtocolVersion,
	}

	if o1, err := c.collectOrder1(ctx); err != nil {
		c.logger().Warn("order 1 metrics unavailable", "error", err)
	} else {
		m.Order1 = o1
	}
	if o2, err := c.collectOrder2(ctx); err != nil {
		c.logger().Warn("order 2 metrics unavailable", "error", err)
	} else {
		m.Order2 = o2
	}
	if o3, err := c.collectOrder3(ctx); err != nil {
		c.logger().Warn("order 3 metrics unavailable", "error", err)
	} else {
		m.Order3 = o3
	}

	if opts.IncludePatterns {
		m.Patterns = detectPatterns(m)
	}
	return m
}

// projectID derives the submission identity from the origin remote. Anonymous
// submissions carry only a hash prefix; the mapping is not reversible.
func (c *Collector) projectID(ctx context.Context, anonymous bool) string {
	name := c.projectName(ctx)
	if !anonymous {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	return "anon-" + hex.EncodeToString(sum[:])[:8]
}

func (c *Collector) projectName(ctx context.Context) string {
	res, err := c.Runner.Run(ctx, "git", []string{"config", "--get", "remote.origin.url"}, execx.RunOpts{Dir: c.Dir})
	if err != nil || res.ExitCode != 0 {
		return "unknown"
	}
	raw := strings.TrimSpace(res.Stdout)
	if raw == "" {
		return "unknown"
	}

	// owner/name from the URL tail, https and ssh forms alike.
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == ':' })
	if len(parts) == 0 {
		return "unknown"
	}
	name := strings.TrimSuffix(parts[len(parts)-1], ".git")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + name
	}
	return name
}

func (c *Collector) collectOrder1(ctx context.Context) (Order1, error) {
	issuesOpen, err := c.ghCount(ctx, "issue", "list", "--state", "open", "--json", "number")
	if err != nil {
		return Order1{}, err
	}
	issuesClosed, err := c.ghCount(ctx, "issue", "list", "--state", "closed", "--limit", "100", "--json", "number")
	if err != nil {
		return Order1{}, err
	}
	prsOpen, err := c.ghCount(ctx, "pr", "list", "--state", "open", "--json", "number")
	if err != nil {
		return Order1{}, err
	}
	prsMerged, err := c.ghCount(ctx, "pr", "list", "--state", "merged", "--limit", "100", "--json", "number")
	if err != nil {
		return Order1{}, err
	}
	return Order1{
		IssuesOpen:        issuesOpen,
		IssuesClosedTotal: issuesClosed,
		PrsOpen:           prsOpen,
		PrsMergedTotal:    prsMerged,
	}, nil
}

// collectOrder2 samples the ten most recent issues for agent-state blocks and
// the last fifty commits for conventional-commit discipline.
func (c *Collector) collectOrder2(ctx context.Context) (Order2, error) {
	out, err := c.gh(ctx, "issue", "list", "--limit", "10", "--json", "number")
	if err != nil {
		return Order2{}, err
	}
	var issues []struct {
		Number int `json:"number"`
	}
	// An unparseable listing samples nothing rather than failing the order.
	_ = json.Unmarshal([]byte(out), &issues)

	agentState := 0
	for _, issue := range issues {
		body, err := c.issueBody(ctx, issue.Number)
		if err != nil {
			return Order2{}, err
		}
		if strings.Contains(body, "<agent-state>") {
			agentState++
		}
	}
	usagePct := 0.0
	if len(issues) > 0 {
		usagePct = float64(agentState) / float64(len(issues)) * 100.0
	}

	res, err := c.Runner.Run(ctx, "git", []string{"log", "--oneline", "-50"}, execx.RunOpts{Dir: c.Dir})
	if err != nil {
		return Order2{}, err
	}
	if res.ExitCode != 0 {
		return Order2{}, fmt.Errorf("git exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	var total, atomic int
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		total++
		if atomicCommitRe.MatchString(line) {
			atomic++
		}
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(atomic) / float64(total) * 100.0
	}

	return Order2{
		AgentStateUsagePct: round1(usagePct),
		AtomicCommitRatio:  round1(ratio),
		SampleSize:         len(issues),
	}, nil
}

func (c *Collector) collectOrder3(ctx context.Context) (Order3, error) {
	friction, err := c.ghCount(ctx, "issue", "list", "--label", "friction", "--state", "all", "--json", "number")
	if err != nil {
		return Order3{}, err
	}
	evolution, err := c.ghCount(ctx, "issue", "list", "--label", "evolution", "--state", "all", "--json", "number")
	if err != nil {
		return Order3{}, err
	}
	return Order3{FrictionReports: friction, EvolutionProposals: evolution}, nil
}

func (c *Collector) issueBody(ctx context.Context, number int) (string, error) {
	out, err := c.gh(ctx, "issue", "view", strconv.Itoa(number), "--json", "body")
	if err != nil {
		return "", err
	}
	var payload struct {
		Body string `json:"body"`
	}
	// A missing or malformed body reads as empty.
	_ = json.Unmarshal([]byte(out), &payload)
	return payload.Body, nil
}

// ghCount runs a gh list command and counts the returned array. Valid
// non-array output counts as zero.
func (c *Collector) ghCount(ctx context.Context, args ...string) (int, error) {
	out, err := c.gh(ctx, args...)
	if err != nil {
		return 0, err
	}
	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return 0, fmt.Errorf("parse gh output: %w", err)
	}
	arr, ok := v.([]any)
	if !ok {
		return 0, nil
	}
	return len(arr), nil
}

func (c *Collector) gh(ctx context.Context, args ...string) (string, error) {
	res, err := c.Runner.Run(ctx, "gh", args, execx.RunOpts{Dir: c.Dir})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("gh exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
