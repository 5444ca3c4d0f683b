package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/version"
)

// VersionInfo pairs the installed protocol version with the upstream one.
type VersionInfo struct {
	Installed       string `json:"installed"`
	Upstream        string `json:"upstream"`
	UpdateAvailable bool   `json:"update_available"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the installed and upstream protocol versions",
		Long: `Show the protocol version recorded in the project and the latest
upstream version.

Version information is advisory and this command never fails: an
unreachable upstream simply reads "unknown".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(rootOpts, env, cmd)
		},
	}
	return cmd
}

func runVersion(rootOpts *RootOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	// Matches the built-in manifest; a broken override cannot break version.
	markerRel := ".gitcore-version"
	if m, err := manifest.Load(env.FS, rootOpts.Dir); err == nil {
		markerRel = m.VersionMarker
	}

	installed := version.Current(env.FS, rootOpts.Dir, markerRel)
	upstream := version.Remote(cmd.Context(), env.Runner)

	info := VersionInfo{
		Installed:       installed,
		Upstream:        upstream,
		UpdateAvailable: version.Known(upstream) && version.IsNewer(upstream, installed),
	}
	if formatter.Format == "json" {
		return formatter.Success(info)
	}

	w := formatter.Writer
	fmt.Fprintln(w, headingStyle.Render("Git-Core Protocol"))
	fmt.Fprintf(w, "  installed: %s\n", info.Installed)
	fmt.Fprintf(w, "  upstream:  %s\n", info.Upstream)
	switch {
	case info.Installed == version.Absent:
		fmt.Fprintln(w, mutedStyle.Render("  not installed; run 'gitcore install'"))
	case info.UpdateAvailable:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  update available; run 'gitcore install --upgrade' to get %s", info.Upstream)))
	case version.Known(info.Upstream):
		fmt.Fprintln(w, successStyle.Render("  up to date"))
	default:
		fmt.Fprintln(w, mutedStyle.Render("  upstream version unavailable"))
	}
	return nil
}
