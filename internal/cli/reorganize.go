package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/reorganize"
)

// ReorganizeOptions holds the reorganize command flags.
type ReorganizeOptions struct {
	DryRun bool
}

// ReorganizeView is the serializable outcome of a reorganization pass.
type ReorganizeView struct {
	DryRun  bool                 `json:"dry_run"`
	Ops     []reconcile.Op       `json:"ops"`
	Results []reconcile.OpResult `json:"results,omitempty"`
}

// NewReorganizeCommand creates the reorganize command.
func NewReorganizeCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &ReorganizeOptions{}

	cmd := &cobra.Command{
		Use:   "reorganize",
		Short: "Move loose root *.md files into the docs directory",
		Long: `Move loose markdown files out of the project root into the docs
directory.

Protocol files, preserved files and hidden files stay put; a file whose
destination already exists is skipped rather than overwritten.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReorganize(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would move without changing anything")

	return cmd
}

func runReorganize(rootOpts *RootOptions, opts *ReorganizeOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)

	m, err := manifest.Load(env.FS, rootOpts.Dir)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}
	rules, err := manifest.Compile(m)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}

	ops, err := reorganize.BuildPlan(env.FS, rootOpts.Dir, rules)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeProject, err.Error(), nil)
	}

	view := ReorganizeView{DryRun: opts.DryRun, Ops: ops}
	if !opts.DryRun && len(ops) > 0 {
		view.Results = reorganize.Apply(cmd.Context(), env.FS, rootOpts.Dir, logger, ops)
	}

	if formatter.Format == "json" {
		return formatter.Success(view)
	}

	w := formatter.Writer
	if len(ops) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("nothing to move"))
		return nil
	}
	renderOps(formatter, ops)
	if opts.DryRun {
		fmt.Fprintln(w, mutedStyle.Render("dry run: nothing was changed"))
		return nil
	}

	moved, failed := 0, 0
	for _, r := range view.Results {
		switch {
		case r.Outcome == reconcile.OutcomeFailed:
			failed++
		case r.Op.Action == reconcile.ActionMove && r.Outcome == reconcile.OutcomeApplied:
			moved++
		}
	}
	fmt.Fprintf(w, "%s moved %d file(s) into %s/\n", successStyle.Render("✓"), moved, rules.DocsDir)
	if failed > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("! %d move(s) failed, see diagnostics", failed)))
	}
	return nil
}
