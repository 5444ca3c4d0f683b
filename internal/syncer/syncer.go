package syncer

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iberi22/gitcore/internal/tracker"
	"github.com/iberi22/gitcore/internal/vfs"
)

// SyncReport tallies one push.
type SyncReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// Syncer pushes the issue files in Dir to the tracker.
type Syncer struct {
	Tracker     tracker.Tracker
	FS          vfs.FS
	Dir         string // issues directory
	MappingPath string // defaults to Dir/MappingFile
	DryRun      bool
	Logger      *slog.Logger
}

func (s *Syncer) mappingPath() string {
	if s.MappingPath != "" {
		return s.MappingPath
	}
	return filepath.Join(s.Dir, MappingFile)
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Push creates tracker issues for unmapped files and updates mapped ones.
// Per-file failures are counted, not fatal. Dry-run counts what would happen
// without calling the tracker or writing the mapping.
func (s *Syncer) Push(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{}
	logger := s.logger()

	names, err := s.scan()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return report, nil
	}

	mapping, err := LoadMapping(s.FS, s.mappingPath())
	if err != nil {
		return nil, err
	}

	changed := false
	for _, name := range names {
		data, err := s.FS.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			report.Errors++
			logger.Warn("read issue file", "file", name, "error", err)
			continue
		}

		issue, err := ParseFrontmatter(data)
		if err != nil {
			report.Errors++
			logger.Warn("parse issue file", "file", name, "error", err)
			continue
		}
		issue.Name = name

		if number, ok := mapping.GetIssue(name); ok {
			if !s.DryRun {
				err := s.Tracker.EditIssue(ctx, number, tracker.Fields{
					Title:     issue.Title,
					Body:      issue.Body,
					AddLabels: issue.Labels,
				})
				if err != nil {
					report.Errors++
					logger.Warn("update issue", "file", name, "issue", number, "error", err)
					continue
				}
			}
			report.Updated++
			logger.Debug("issue updated", "file", name, "issue", number)
			continue
		}

		if s.DryRun {
			report.Created++
			continue
		}
		number, err := s.Tracker.CreateIssue(ctx, issue.Title, issue.Body, issue.Labels)
		if err != nil {
			report.Errors++
			logger.Warn("create issue", "file", name, "error", err)
			continue
		}
		mapping.Add(name, number)
		changed = true
		report.Created++
		logger.Debug("issue created", "file", name, "issue", number)
	}

	// Losing the mapping would duplicate every issue on the next push, so a
	// failed save is fatal even though per-file errors are not.
	if changed {
		if err := mapping.Save(s.FS, s.mappingPath()); err != nil {
			return report, err
		}
	}
	return report, nil
}

// scan lists the pushable files in Dir: regular .md files, not dot-prefixed,
// sorted by name. A missing directory means nothing to push.
func (s *Syncer) scan() ([]string, error) {
	dirents, err := s.FS.ReadDir(s.Dir)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncer: scan %s: %w", s.Dir, err)
	}

	var names []string
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
