package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/tracker"
)

// graphqlEscaper escapes a value for inline use in a quoted GraphQL string.
var graphqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Submitter posts metrics to the official repository. Internal submissions go
// through the tracker as labeled issues; public ones become discussions via
// the GraphQL API, which gh fronts.
type Submitter struct {
	Tracker tracker.Tracker // configured for OfficialSlug
	Runner  execx.Runner
	Logger  *slog.Logger
}

func (s *Submitter) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Submit posts m, routed by its submission method, and returns the URL of the
// created artifact.
func (s *Submitter) Submit(ctx context.Context, m *Metrics) (string, error) {
	if m.SubmissionMethod == MethodIssue {
		return s.submitInternal(ctx, m)
	}
	return s.submitPublic(ctx, m)
}

func (s *Submitter) submitInternal(ctx context.Context, m *Metrics) (string, error) {
	body, err := internalBody(m)
	if err != nil {
		return "", err
	}
	number, err := s.Tracker.CreateIssue(ctx, Title(m), body, []string{InternalLabel})
	if err != nil {
		return "", fmt.Errorf("telemetry: submit internal: %w", err)
	}
	return fmt.Sprintf("https://github.com/%s/issues/%d", OfficialSlug, number), nil
}

func (s *Submitter) submitPublic(ctx context.Context, m *Metrics) (string, error) {
	repoID, categoryID, categoryName, err := s.discussionTarget(ctx)
	if err != nil {
		return "", fmt.Errorf("telemetry: submit public: %w", err)
	}
	s.logger().Debug("resolved discussion category", "category", categoryName, "id", categoryID)

	body, err := publicBody(m)
	if err != nil {
		return "", err
	}
	mutation := fmt.Sprintf(`mutation {
  createDiscussion(input: {
    repositoryId: "%s"
    categoryId: "%s"
    title: "%s"
    body: "%s"
  }) {
    discussion {
      url
    }
  }
}`, repoID, categoryID, Title(m), graphqlEscaper.Replace(body))

	out, err := s.graphql(ctx, mutation)
	if err != nil {
		return "", fmt.Errorf("telemetry: submit public: %w", err)
	}

	var created struct {
		Data struct {
			CreateDiscussion struct {
				Discussion struct {
					URL string `json:"url"`
				} `json:"discussion"`
			} `json:"createDiscussion"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		return "", fmt.Errorf("telemetry: submit public: parse mutation response: %w", err)
	}
	url := created.Data.CreateDiscussion.Discussion.URL
	if url == "" {
		return "", fmt.Errorf("telemetry: submit public: no discussion created: %s", strings.TrimSpace(out))
	}
	return url, nil
}

// discussionTarget resolves the official repo's node id and the category to
// post under: a telemetry category when one exists, the general one otherwise.
func (s *Submitter) discussionTarget(ctx context.Context) (repoID, categoryID, categoryName string, err error) {
	query := fmt.Sprintf(`query {
  repository(owner: "%s", name: "%s") {
    id
    discussionCategories(first: 20) {
      nodes {
        id
        name
        slug
      }
    }
  }
}`, OfficialOwner, OfficialRepo)

	out, err := s.graphql(ctx, query)
	if err != nil {
		return "", "", "", err
	}

	var lookup struct {
		Data struct {
			Repository struct {
				ID                   string `json:"id"`
				DiscussionCategories struct {
					Nodes []struct {
						ID   string `json:"id"`
						Name string `json:"name"`
						Slug string `json:"slug"`
					} `json:"nodes"`
				} `json:"discussionCategories"`
			} `json:"repository"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &lookup); err != nil {
		return "", "", "", fmt.Errorf("parse graphql response: %w", err)
	}
	repo := lookup.Data.Repository
	if repo.ID == "" {
		return "", "", "", fmt.Errorf("repository id not found")
	}

	for _, cat := range repo.DiscussionCategories.Nodes {
		if strings.Contains(cat.Name, "Telemetry") || strings.Contains(cat.Slug, "telemetry") {
			return repo.ID, cat.ID, cat.Name, nil
		}
	}
	for _, cat := range repo.DiscussionCategories.Nodes {
		if cat.Slug == "general" {
			return repo.ID, cat.ID, cat.Name, nil
		}
	}
	return "", "", "", fmt.Errorf("no suitable discussion category found")
}

func (s *Submitter) graphql(ctx context.Context, query string) (string, error) {
	res, err := s.Runner.Run(ctx, "gh", []string{"api", "graphql", "-f", "query=" + query}, execx.RunOpts{})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("gh exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

func internalBody(m *Metrics) (string, error) {
	payload, err := PayloadJSON(m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("## 📡 Internal Telemetry Submission\n\n"+
		"**Project:** `%s`\n"+
		"**Week:** %d (%d)\n"+
		"**Protocol Version:** %s\n"+
		"**Mode:** Internal (dogfooding)\n\n"+
		"### Metrics\n\n"+
		"```json\n%s\n```\n\n"+
		"---\n"+
		"*Auto-generated by Git-Core Protocol Telemetry System v2.1*",
		m.ProjectID, m.Week, m.Year, m.ProtocolVersion, payload), nil
}

func publicBody(m *Metrics) (string, error) {
	payload, err := PayloadJSON(m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("## 📡 Telemetry Submission\n\n"+
		"**Project ID:** `%s`\n"+
		"**Week:** %d (%d)\n"+
		"**Protocol Version:** %s\n\n"+
		"### Metrics\n\n"+
		"```json\n%s\n```\n\n"+
		"---\n"+
		"*Auto-generated by Git-Core Protocol Telemetry System v2.1*",
		m.ProjectID, m.Week, m.Year, m.ProtocolVersion, payload), nil
}
