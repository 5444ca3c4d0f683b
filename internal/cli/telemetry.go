package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/telemetry"
	"github.com/iberi22/gitcore/internal/tracker"
)

// TelemetryOptions holds the telemetry command flags.
type TelemetryOptions struct {
	DryRun          bool
	Internal        bool
	Anonymous       bool
	IncludePatterns bool
}

// NewTelemetryCommand creates the telemetry command.
func NewTelemetryCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	opts := &TelemetryOptions{}

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Collect and submit protocol usage metrics",
		Long: `Collect the weekly protocol metrics from this repository and submit
them upstream.

Public submissions land in the upstream discussion board and are
anonymous unless --anonymous=false. --internal submissions are labeled
issues used for dogfooding and carry the project identity. Every metric
order is collected best-effort: an unreachable tracker zeroes that
order instead of failing the run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTelemetry(rootOpts, opts, env, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the payload instead of submitting")
	cmd.Flags().BoolVar(&opts.Internal, "internal", false, "submit as an internal dogfooding issue")
	cmd.Flags().BoolVar(&opts.Anonymous, "anonymous", false, "hash the project identity (default: on unless --internal)")
	cmd.Flags().BoolVar(&opts.IncludePatterns, "include-patterns", false, "include detected usage patterns")

	return cmd
}

func runTelemetry(rootOpts *RootOptions, opts *TelemetryOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
	ctx := cmd.Context()

	anonymous := opts.Anonymous
	if !cmd.Flags().Changed("anonymous") {
		anonymous = !opts.Internal
	}

	collector := &telemetry.Collector{Runner: env.Runner, Dir: rootOpts.Dir, Now: env.Now, Logger: logger}
	metrics := collector.Collect(ctx, telemetry.CollectOptions{
		Internal:        opts.Internal,
		Anonymous:       anonymous,
		IncludePatterns: opts.IncludePatterns,
	})

	if opts.DryRun {
		payload, err := telemetry.PayloadJSON(metrics)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		if formatter.Format == "json" {
			return formatter.Success(metrics)
		}
		fmt.Fprintln(formatter.Writer, headingStyle.Render("Telemetry dry run"))
		fmt.Fprintf(formatter.Writer, "would submit: %s\n", telemetry.Title(metrics))
		fmt.Fprintln(formatter.Writer, payload)
		return nil
	}

	submitter := &telemetry.Submitter{
		Tracker: &tracker.GHCLI{Runner: env.Runner, Repo: telemetry.OfficialSlug},
		Runner:  env.Runner,
		Logger:  logger,
	}
	url, err := submitter.Submit(ctx, metrics)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeTracker, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(struct {
			URL     string             `json:"url"`
			Metrics *telemetry.Metrics `json:"metrics"`
		}{URL: url, Metrics: metrics})
	}
	fmt.Fprintf(formatter.Writer, "%s submitted: %s\n", successStyle.Render("✓"), url)
	return nil
}
