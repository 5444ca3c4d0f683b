package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/backup"
	"github.com/iberi22/gitcore/internal/journal"
	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/reorganize"
	"github.com/iberi22/gitcore/internal/version"
)

// InstallOptions holds the install command flags.
type InstallOptions struct {
	Source     string
	Ref        string
	Upgrade    bool
	Force      bool
	Yes        bool
	Reorganize bool
	DryRun     bool
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &InstallOptions{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install or upgrade the protocol in the project",
		Long: `Install the Git-Core Protocol into the project, or upgrade an existing
installation.

A fresh install only fills gaps: nothing that already exists is touched.
Upgrades replace the managed directories wholesale while preserving
user-owned artifacts and custom workflows through a backup and restore
pass. --force additionally lets the template overwrite the architecture
document; the context log survives every mode.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "template source (owner/repo, git URL, or local dir)")
	cmd.Flags().StringVar(&opts.Ref, "ref", "", "branch or tag to fetch")
	cmd.Flags().BoolVar(&opts.Upgrade, "upgrade", false, "upgrade an existing installation")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "let the template overwrite the architecture document (implies --upgrade)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&opts.Reorganize, "reorganize", false, "move loose root *.md files into the docs directory first")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan only, change nothing")

	return cmd
}

func runInstall(rootOpts *RootOptions, opts *InstallOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
	ctx := cmd.Context()

	mode := reconcile.ModeInstall
	switch {
	case opts.Force:
		mode = reconcile.ModeForceUpgrade
	case opts.Upgrade:
		mode = reconcile.ModeSafeUpgrade
	}

	m, err := manifest.Load(env.FS, rootOpts.Dir)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}
	rules, err := manifest.Compile(m)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}

	// Upgrade and force runs are already explicit requests; only a plain
	// interactive install asks.
	if !opts.DryRun && !opts.Yes && mode == reconcile.ModeInstall {
		if !confirm(cmd, fmt.Sprintf("Install the Git-Core Protocol into %s? [y/N] ", rootOpts.Dir)) {
			if formatter.Format == "json" {
				_ = formatter.Error(ErrCodeCancelled, "cancelled", nil)
			} else {
				fmt.Fprintln(formatter.Writer, "cancelled")
			}
			return NewExitError(ExitFailure, "cancelled")
		}
	}

	var reorgOps []reconcile.Op
	var reorgResults []reconcile.OpResult
	if opts.Reorganize {
		reorgOps, err = reorganize.BuildPlan(env.FS, rootOpts.Dir, rules)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeProject, fmt.Sprintf("planning reorganization: %v", err), nil)
		}
		if !opts.DryRun {
			reorgResults = reorganize.Apply(ctx, env.FS, rootOpts.Dir, logger, reorgOps)
		}
	}

	versionBefore := version.Current(env.FS, rootOpts.Dir, m.VersionMarker)

	// Backup precedes the fetch so a template that fails to materialize
	// can never cost the user their artifacts.
	var set *backup.Set
	if mode.IsUpgrade() && !opts.DryRun {
		set, err = backup.Capture(env.FS, rootOpts.Dir, rules)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeProject, fmt.Sprintf("capturing backup: %v", err), nil)
		}
		defer func() {
			if err := set.Discard(); err != nil {
				logger.Warn("backup discard failed", "error", err)
			}
		}()
		formatter.VerboseLog("backed up %d artifact(s)", set.Len())
	}

	src, err := resolveSource(opts.Source, opts.Ref, env)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeFetchFailed, err.Error(), nil)
	}
	root, cleanup, err := src.Fetch(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeFetchFailed, fmt.Sprintf("fetching template: %v", err), nil)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("template cleanup failed", "error", err)
		}
	}()
	formatter.VerboseLog("template at %s", root)

	project, err := reconcile.TakeSnapshot(env.FS, rootOpts.Dir)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeProject, fmt.Sprintf("reading project tree: %v", err), nil)
	}
	template, err := reconcile.TakeSnapshot(env.FS, root)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeFetchFailed, fmt.Sprintf("reading template tree: %v", err), nil)
	}

	plan, err := reconcile.BuildPlan(template, project, rules, mode)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	digest, err := reconcile.PlanDigest(plan)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.DryRun {
		return renderDryRun(formatter, src.Describe(), mode, versionBefore,
			version.Current(env.FS, root, m.VersionMarker), digest, reorgOps, plan)
	}

	runID, err := env.IDs.NewID()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	started := env.Now().UTC()
	applier := &reconcile.Applier{
		FS:           env.FS,
		TemplateRoot: root,
		ProjectRoot:  rootOpts.Dir,
		Logger:       logger,
	}
	results := applier.Apply(ctx, plan)

	if set != nil {
		restored, err := set.Restore(rootOpts.Dir, mode)
		if err != nil {
			logger.Warn("backup restore", "error", err)
		}
		results = append(results, restored...)
	}

	report := &reconcile.Report{
		RunID:         runID,
		Mode:          mode,
		Source:        src.Describe(),
		VersionBefore: versionBefore,
		VersionAfter:  version.Current(env.FS, rootOpts.Dir, m.VersionMarker),
		StartedAt:     started,
		FinishedAt:    env.Now().UTC(),
		PlanDigest:    digest,
		Results:       append(reorgResults, results...),
	}

	recordRun(ctx, env, rootOpts.Dir, report, logger)

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	renderInstallSummary(formatter, m, mode, report, versionBefore)
	return nil
}

// confirm asks a yes/no question on the command's input stream. Anything
// but an explicit yes declines, including a closed stdin.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// recordRun stores the report in the project journal. The journal is
// advisory: failure to record warns and never fails the run that already
// happened.
func recordRun(ctx context.Context, env *Env, dir string, report *reconcile.Report, logger *slog.Logger) {
	j, err := journal.OpenAt(env.FS, dir)
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
		return
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Warn("journal close failed", "error", err)
		}
	}()
	if err := j.RecordRun(ctx, report); err != nil {
		logger.Warn("journal record failed", "error", err)
	}
}

func renderDryRun(f *OutputFormatter, src string, mode reconcile.Mode, before, after, digest string, reorgOps []reconcile.Op, plan *reconcile.Plan) error {
	ops := append(append([]reconcile.Op(nil), reorgOps...), plan.Ops...)
	counts := plan.CountByAction()
	for _, op := range reorgOps {
		counts[op.Action]++
	}

	if f.Format == "json" {
		return f.Success(PlanView{
			Mode:   mode.String(),
			Source: src,
			Digest: digest,
			Counts: counts,
			Ops:    ops,
		})
	}

	fmt.Fprintln(f.Writer, headingStyle.Render(fmt.Sprintf("Dry run (%s): %s -> %s", mode, before, after)))
	renderOps(f, ops)
	fmt.Fprintf(f.Writer, "%s\n", countsLine(counts))
	fmt.Fprintln(f.Writer, mutedStyle.Render("dry run: nothing was changed"))
	return nil
}

func renderInstallSummary(f *OutputFormatter, m *manifest.Manifest, mode reconcile.Mode, report *reconcile.Report, before string) {
	w := f.Writer
	counts := report.Counts()

	var sentence string
	switch mode {
	case reconcile.ModeSafeUpgrade:
		sentence = fmt.Sprintf("upgraded %s -> %s", before, report.VersionAfter)
	case reconcile.ModeForceUpgrade:
		sentence = fmt.Sprintf("force-upgraded %s -> %s", before, report.VersionAfter)
	default:
		sentence = fmt.Sprintf("installed %s", report.VersionAfter)
	}

	fmt.Fprintln(w, headingStyle.Render("Git-Core Protocol"))
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), sentence)
	fmt.Fprintf(w, "  copied %d  skipped %d  migrated %d  moved %d  restored %d  excluded %d\n",
		counts.Copied, counts.Skipped, counts.Migrated, counts.Moved, counts.Restored, counts.Excluded)

	if counts.Failed > 0 {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("✗ %d path(s) failed", counts.Failed)))
		for _, r := range report.Failed() {
			fmt.Fprintf(w, "    %s %s: %s\n", r.Op.Action, r.Op.Path, r.Err)
		}
	}

	if mode == reconcile.ModeInstall && before == version.Absent {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("next: describe your system in %s, then run 'gitcore seed'", m.ArchitectureFile)))
	}
}
