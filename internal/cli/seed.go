package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/tracker"
)

// SeedOptions holds the seed command flags.
type SeedOptions struct {
	Repo string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the protocol labels and setup issues",
		Long: `Ensure the repository carries the protocol label set and the initial
setup issues.

Safe to re-run: labels are upserted and existing issues are left alone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repo, "repo", "", "target repository as owner/name (default: current)")

	return cmd
}

func runSeed(rootOpts *RootOptions, opts *SeedOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	tr := &tracker.GHCLI{Runner: env.Runner, Repo: opts.Repo, Dir: rootOpts.Dir}
	report, err := tracker.Seed(cmd.Context(), tr)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeTracker, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s labels ensured: %d\n", successStyle.Render("✓"), report.LabelsEnsured)
	fmt.Fprintf(w, "  issues created: %d  skipped: %d\n", report.IssuesCreated, report.IssuesSkipped)
	for _, title := range report.CreatedTitles {
		fmt.Fprintln(w, mutedStyle.Render("    "+title))
	}
	return nil
}
