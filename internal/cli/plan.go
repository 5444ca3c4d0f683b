package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/source"
)

// PlanOptions holds the plan command flags.
type PlanOptions struct {
	Source string
	Ref    string
	Mode   string
}

// PlanView is the serializable shape of a computed plan.
type PlanView struct {
	Mode   string                   `json:"mode"`
	Source string                   `json:"source"`
	Digest string                   `json:"plan_digest"`
	Counts map[reconcile.Action]int `json:"counts"`
	Ops    []reconcile.Op           `json:"ops"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the reconciliation plan without applying it",
		Long: `Compute what an install or upgrade would do and print the operations.

Nothing is written: the template is fetched, both trees are snapshotted,
and the resulting plan is rendered with its content digest. The same plan
for the same trees always produces the same digest.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "template source (owner/repo, git URL, or local dir)")
	cmd.Flags().StringVar(&opts.Ref, "ref", "", "branch or tag to fetch")
	cmd.Flags().StringVar(&opts.Mode, "mode", "install", "reconciliation mode (install|safe-upgrade|force-upgrade)")

	return cmd
}

func runPlan(rootOpts *RootOptions, opts *PlanOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
	ctx := cmd.Context()

	mode, err := reconcile.ParseMode(opts.Mode)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	m, err := manifest.Load(env.FS, rootOpts.Dir)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}
	rules, err := manifest.Compile(m)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeManifest, err.Error(), nil)
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

	view := PlanView{
		Mode:   mode.String(),
		Source: src.Describe(),
		Digest: digest,
		Counts: plan.CountByAction(),
		Ops:    plan.Ops,
	}
	if formatter.Format == "json" {
		return formatter.Success(view)
	}

	fmt.Fprintln(formatter.Writer, headingStyle.Render(fmt.Sprintf("Plan (%s)", view.Mode)))
	renderOps(formatter, view.Ops)
	fmt.Fprintf(formatter.Writer, "%s\n", countsLine(view.Counts))
	fmt.Fprintln(formatter.Writer, mutedStyle.Render("plan digest: "+view.Digest))
	return nil
}

// resolveSource turns the --source/--ref flag pair into a Source. A ref only
// makes sense against a git source; local directories carry none.
func resolveSource(spec, ref string, env *Env) (source.Source, error) {
	spec = strings.TrimSpace(spec)
	if ref != "" {
		if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") {
			return nil, fmt.Errorf("--ref only applies to git sources")
		}
		if spec == "" {
			spec = source.DefaultRepo
		}
		spec += "#" + ref
	}
	return source.Parse(spec, env.FS, env.Runner)
}

func renderOps(f *OutputFormatter, ops []reconcile.Op) {
	for _, op := range ops {
		line := fmt.Sprintf("  %-10s %s", op.Action, op.Path)
		if op.Reason != "" {
			line += "  (" + op.Reason + ")"
		}
		fmt.Fprintln(f.Writer, actionStyle(op.Action).Render(line))
	}
}

func actionStyle(a reconcile.Action) lipgloss.Style {
	switch a {
	case reconcile.ActionSkip, reconcile.ActionExclude:
		return mutedStyle
	case reconcile.ActionDeleteDir:
		return warnStyle
	default:
		return lipgloss.NewStyle()
	}
}

func countsLine(counts map[reconcile.Action]int) string {
	order := []reconcile.Action{
		reconcile.ActionCopy,
		reconcile.ActionSkip,
		reconcile.ActionDeleteDir,
		reconcile.ActionExclude,
		reconcile.ActionMigrate,
		reconcile.ActionMkdir,
		reconcile.ActionMove,
		reconcile.ActionRestore,
	}
	parts := make([]string, 0, len(order))
	for _, a := range order {
		if n := counts[a]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", a, n))
		}
	}
	if len(parts) == 0 {
		return "  nothing to do"
	}
	return "  " + strings.Join(parts, "  ")
}
