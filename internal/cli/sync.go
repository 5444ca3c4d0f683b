package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/syncer"
	"github.com/iberi22/gitcore/internal/tracker"
)

// SyncOptions holds the sync command flags.
type SyncOptions struct {
	Repo      string
	IssuesDir string
	DryRun    bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local issue files to the tracker",
		Long: `Push the markdown issue files under the issues directory to the
tracker: unmapped files become new issues, mapped files update the
issue they created earlier.

The file-to-issue mapping is kept next to the files, so repeated pushes
never duplicate issues.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repo, "repo", "", "target repository as owner/name (default: current)")
	cmd.Flags().StringVar(&opts.IssuesDir, "issues-dir", "issues", "directory holding the issue files")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without touching the tracker")

	return cmd
}

func runSync(rootOpts *RootOptions, opts *SyncOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)

	dir := opts.IssuesDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootOpts.Dir, dir)
	}

	s := &syncer.Syncer{
		Tracker: &tracker.GHCLI{Runner: env.Runner, Repo: opts.Repo, Dir: rootOpts.Dir},
		FS:      env.FS,
		Dir:     dir,
		DryRun:  opts.DryRun,
		Logger:  logger,
	}
	report, err := s.Push(cmd.Context())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeProject, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	verb := "synced"
	if opts.DryRun {
		verb = "would sync"
	}
	fmt.Fprintf(w, "%s %s: created %d, updated %d\n", successStyle.Render("✓"), verb, report.Created, report.Updated)
	if report.Errors > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("! %d file(s) failed, see diagnostics", report.Errors)))
	}
	return nil
}
