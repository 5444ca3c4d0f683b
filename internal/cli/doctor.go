package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/journal"
	"github.com/iberi22/gitcore/internal/manifest"
	"github.com/iberi22/gitcore/internal/version"
)

// DoctorCheck is one preflight probe result.
type DoctorCheck struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
	Required bool   `json:"required"`
}

// DoctorReport holds every probe plus the overall verdict.
type DoctorReport struct {
	Checks  []DoctorCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions, env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run the protocol",
		Long: `Probe the tools and project state the protocol depends on.

git and an authenticated gh are required; the remaining probes report
project status without failing the check.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(rootOpts, env, cmd)
		},
	}
	return cmd
}

func runDoctor(rootOpts *RootOptions, env *Env, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	ctx := cmd.Context()

	checks := []DoctorCheck{
		checkGit(ctx, env),
		checkGh(ctx, env),
		checkGhAuth(ctx, env),
		checkProtocol(env, rootOpts.Dir),
		checkConfigDir(env, rootOpts.Dir),
		checkJournal(ctx, env, rootOpts.Dir),
	}

	healthy := true
	for _, c := range checks {
		if c.Required && !c.OK {
			healthy = false
		}
	}
	report := DoctorReport{Checks: checks, Healthy: healthy}

	if formatter.Format == "json" {
		if healthy {
			return formatter.Success(report)
		}
		resp := CLIResponse{
			Status: "error",
			Data:   report,
			Error:  &CLIError{Code: ErrCodeNotReady, Message: "environment not ready"},
		}
		enc := json.NewEncoder(formatter.Writer)
		if err := enc.Encode(resp); err != nil {
			return WrapExitError(ExitCommandError, "encoding doctor report", err)
		}
		return NewExitError(ExitCommandError, "environment not ready")
	}

	for _, c := range checks {
		glyph := successStyle.Render("✓")
		if !c.OK {
			if c.Required {
				glyph = errorStyle.Render("✗")
			} else {
				glyph = warnStyle.Render("!")
			}
		}
		fmt.Fprintf(formatter.Writer, "%s %-10s %s\n", glyph, c.Name, c.Detail)
	}
	if !healthy {
		fmt.Fprintln(formatter.Writer, errorStyle.Render("environment not ready"))
		return NewExitError(ExitCommandError, "environment not ready")
	}
	fmt.Fprintln(formatter.Writer, successStyle.Render("ready"))
	return nil
}

func checkGit(ctx context.Context, env *Env) DoctorCheck {
	c := DoctorCheck{Name: "git", Required: true}
	if _, err := env.Runner.LookPath("git"); err != nil {
		c.Detail = "not found on PATH"
		return c
	}
	res, err := env.Runner.Run(ctx, "git", []string{"--version"}, execx.RunOpts{})
	if err != nil || res.ExitCode != 0 {
		c.Detail = "git --version failed"
		return c
	}
	c.OK = true
	c.Detail = strings.TrimSpace(res.Stdout)
	return c
}

func checkGh(ctx context.Context, env *Env) DoctorCheck {
	c := DoctorCheck{Name: "gh", Required: true}
	if _, err := env.Runner.LookPath("gh"); err != nil {
		c.Detail = "not found on PATH; install from https://cli.github.com"
		return c
	}
	res, err := env.Runner.Run(ctx, "gh", []string{"--version"}, execx.RunOpts{})
	if err != nil || res.ExitCode != 0 {
		c.Detail = "gh --version failed"
		return c
	}
	// gh prints multiple lines; the first names the version.
	c.OK = true
	c.Detail = strings.TrimSpace(strings.SplitN(res.Stdout, "\n", 2)[0])
	return c
}

func checkGhAuth(ctx context.Context, env *Env) DoctorCheck {
	c := DoctorCheck{Name: "gh auth", Required: true}
	if _, err := env.Runner.LookPath("gh"); err != nil {
		c.Detail = "gh not found"
		return c
	}
	res, err := env.Runner.Run(ctx, "gh", []string{"auth", "status"}, execx.RunOpts{})
	if err != nil || res.ExitCode != 0 {
		c.Detail = "not authenticated; run 'gh auth login'"
		return c
	}
	c.OK = true
	c.Detail = "authenticated"
	return c
}

func checkProtocol(env *Env, dir string) DoctorCheck {
	c := DoctorCheck{Name: "protocol"}
	markerRel := ".gitcore-version"
	if m, err := manifest.Load(env.FS, dir); err == nil {
		markerRel = m.VersionMarker
	}
	v := version.Current(env.FS, dir, markerRel)
	if v == version.Absent {
		c.Detail = "not installed; run 'gitcore install'"
		return c
	}
	c.OK = true
	c.Detail = "installed " + v
	return c
}

func checkConfigDir(env *Env, dir string) DoctorCheck {
	c := DoctorCheck{Name: "config"}
	configDir := "core"
	if m, err := manifest.Load(env.FS, dir); err == nil {
		configDir = m.ConfigDir
	}
	info, err := env.FS.Stat(filepath.Join(dir, filepath.FromSlash(configDir)))
	if err != nil || !info.IsDir() {
		c.Detail = configDir + "/ missing"
		return c
	}
	c.OK = true
	c.Detail = configDir + "/ present"
	return c
}

func checkJournal(ctx context.Context, env *Env, dir string) DoctorCheck {
	c := DoctorCheck{Name: "journal"}
	path := filepath.Join(dir, journal.Dir, journal.FileName)
	if _, err := env.FS.Stat(path); errors.Is(err, iofs.ErrNotExist) {
		c.OK = true
		c.Detail = "no runs recorded"
		return c
	} else if err != nil {
		c.Detail = err.Error()
		return c
	}

	j, err := journal.Open(path)
	if err != nil {
		c.Detail = "unreadable: " + err.Error()
		return c
	}
	defer j.Close()
	runs, err := j.History(ctx, journal.Filter{})
	if err != nil {
		c.Detail = "unreadable: " + err.Error()
		return c
	}
	c.OK = true
	c.Detail = fmt.Sprintf("%d run(s) recorded", len(runs))
	return c
}
