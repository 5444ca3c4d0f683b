package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Dir     string // project tree the command operates on
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gitcore CLI.
func NewRootCommand(env *Env) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gitcore",
		Short: "gitcore - Git-Core Protocol installer",
		Long:  "Install, upgrade and operate the Git-Core Protocol in a repository.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "dir", "C", ".", "project directory to operate on")

	// Add subcommands
	cmd.AddCommand(NewInstallCommand(opts, env))
	cmd.AddCommand(NewPlanCommand(opts, env))
	cmd.AddCommand(NewVersionCommand(opts, env))
	cmd.AddCommand(NewDoctorCommand(opts, env))
	cmd.AddCommand(NewHistoryCommand(opts, env))
	cmd.AddCommand(NewSeedCommand(opts, env))
	cmd.AddCommand(NewSyncCommand(opts, env))
	cmd.AddCommand(NewCIDetectCommand(opts, env))
	cmd.AddCommand(NewTelemetryCommand(opts, env))
	cmd.AddCommand(NewReorganizeCommand(opts, env))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
