// Package syncer pushes local markdown issue files to the tracker.
//
// Issue files live in a flat directory, one file per issue, with YAML
// frontmatter naming the title, labels, and assignees. A JSON mapping file
// links each file to its tracker issue number so repeated pushes update
// instead of duplicating.
package syncer

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontmatter indicates the file did not start with a YAML fence.
	ErrMissingFrontmatter = errors.New("syncer: missing frontmatter")
	// ErrMalformedFrontmatter indicates the YAML block could not be used.
	ErrMalformedFrontmatter = errors.New("syncer: malformed frontmatter")
)

// IssueFile is one parsed local issue document.
type IssueFile struct {
	Name      string // file name within the issues dir
	Title     string
	Labels    []string
	Assignees []string
	Body      string
}

type frontmatter struct {
	Title     string   `yaml:"title"`
	Labels    []string `yaml:"labels"`
	Assignees []string `yaml:"assignees"`
}

// ParseFrontmatter extracts the metadata block and body from a document that
// starts with `---` YAML fences. Only flat keys are read; anything else in
// the block is ignored.
func ParseFrontmatter(content []byte) (IssueFile, error) {
	if len(content) == 0 {
		return IssueFile{}, ErrMissingFrontmatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return IssueFile{}, ErrMissingFrontmatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return IssueFile{}, ErrMalformedFrontmatter
	}

	var fm frontmatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return IssueFile{}, fmt.Errorf("syncer: parse frontmatter: %w", err)
	}
	if fm.Title == "" {
		return IssueFile{}, fmt.Errorf("%w: title is required", ErrMalformedFrontmatter)
	}

	return IssueFile{
		Title:     fm.Title,
		Labels:    append([]string(nil), fm.Labels...),
		Assignees: append([]string(nil), fm.Assignees...),
		Body:      string(bytes.TrimLeft(parts[1], "\n")),
	}, nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
