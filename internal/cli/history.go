package cli

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/journal"
	"github.com/iberi22/gitcore/internal/reconcile"
)

// HistoryOptions holds the history command flags.
type HistoryOptions struct {
	Mode   string
	Since  string
	Limit  int
	Failed bool
}

// HistoryEntry is the serializable view of one recorded run.
type HistoryEntry struct {
	RunID         string           `json:"run_id"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Mode          string           `json:"mode"`
	DryRun        bool             `json:"dry_run,omitempty"`
	Source        string           `json:"source"`
	VersionBefore string           `json:"version_before"`
	VersionAfter  string           `json:"version_after"`
	Counts        reconcile.Counts `json:"counts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded install and upgrade runs",
		Long: `List the runs recorded in the project journal, newest first.

--since accepts RFC 3339 timestamps or plain dates (2026-01-31).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "only runs in this mode (install|safe-upgrade|force-upgrade)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only runs started at or after this time")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only runs with failed paths")

	return cmd
}

func runHistory(rootOpts *RootOptions, opts *HistoryOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	ctx := cmd.Context()

	f := journal.Filter{Limit: opts.Limit, OnlyFailed: opts.Failed}
	if opts.Mode != "" {
		mode, err := reconcile.ParseMode(opts.Mode)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		f.Mode = mode.String()
	}
	if opts.Since != "" {
		since, err := parseSince(opts.Since)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		f.Since = since
	}

	path := filepath.Join(rootOpts.Dir, journal.Dir, journal.FileName)
	if _, err := env.FS.Stat(path); errors.Is(err, iofs.ErrNotExist) {
		if formatter.Format == "json" {
			return formatter.Success([]HistoryEntry{})
		}
		fmt.Fprintln(formatter.Writer, mutedStyle.Render("no runs recorded"))
		return nil
	}

	j, err := journal.Open(path)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error(), nil)
	}
	defer j.Close()

	runs, err := j.History(ctx, f)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error(), nil)
	}

	entries := make([]HistoryEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, HistoryEntry{
			RunID:         r.ID,
			StartedAt:     r.StartedAt,
			FinishedAt:    r.FinishedAt,
			Mode:          r.Mode,
			DryRun:        r.DryRun,
			Source:        r.Source,
			VersionBefore: r.VersionBefore,
			VersionAfter:  r.VersionAfter,
			Counts:        r.Counts,
		})
	}
	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, mutedStyle.Render("no matching runs"))
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %-13s %s -> %s  copied %d skipped %d restored %d failed %d",
			shortID(e.RunID), e.StartedAt.UTC().Format("2006-01-02 15:04"), e.Mode,
			e.VersionBefore, e.VersionAfter,
			e.Counts.Copied, e.Counts.Skipped, e.Counts.Restored, e.Counts.Failed)
		if e.Counts.Failed > 0 {
			line = warnStyle.Render(line)
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want RFC 3339 or 2006-01-02", s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
