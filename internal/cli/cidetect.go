package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/cidetect"
)

// CIDetectOptions holds the ci-detect command flags.
type CIDetectOptions struct {
	Repository string
}

// NewCIDetectCommand creates the ci-detect command.
func NewCIDetectCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &CIDetectOptions{}

	cmd := &cobra.Command{
		Use:   "ci-detect",
		Short: "Decide the CI schedule posture for a repository",
		Long: `Decide how aggressively the protocol workflows may schedule
themselves: public repositories run aggressively, the main protocol
repository moderately, and private consumer repositories stay
event-driven only.

Inside GitHub Actions the decision is appended to GITHUB_OUTPUT. A
failed visibility lookup degrades to the conservative posture instead
of failing the workflow.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCIDetect(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repository, "repository", "", "repository as owner/name (default: $GITHUB_REPOSITORY)")

	return cmd
}

func runCIDetect(rootOpts *RootOptions, opts *CIDetectOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)

	repo, err := cidetect.ResolveRepository(opts.Repository)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	det := (&cidetect.Detector{Runner: env.Runner, Logger: logger}).Detect(cmd.Context(), repo)
	if err := cidetect.WriteGithubOutput(env.FS, det); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeProject, fmt.Sprintf("writing GITHUB_OUTPUT: %v", err), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(det)
	}

	w := formatter.Writer
	fmt.Fprintln(w, headingStyle.Render("CI schedule detection"))
	fmt.Fprintf(w, "  repository: %s\n", det.Repository)
	visibility := det.Visibility
	if det.Fallback {
		visibility += " (lookup failed, conservative fallback)"
	}
	fmt.Fprintf(w, "  visibility: %s\n", visibility)
	fmt.Fprintf(w, "  main repo:  %t\n", det.IsMainRepo)
	line := fmt.Sprintf("  schedule:   %s (schedules enabled: %t)", det.ScheduleMode, det.EnableSchedules)
	if det.EnableSchedules {
		fmt.Fprintln(w, successStyle.Render(line))
	} else {
		fmt.Fprintln(w, mutedStyle.Render(line))
	}
	return nil
}
