// Package cidetect decides how aggressively scheduled workflows may run for a
// repository. Public repos get unmetered Actions minutes, private ones do not,
// so the schedule posture follows visibility.
package cidetect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/vfs"
)

// Schedule modes, ordered from most to least permissive.
const (
	ModeAggressive   = "aggressive"   // all schedules, high frequency
	ModeModerate     = "moderate"     // essential schedules only
	ModeConservative = "conservative" // event-based triggers only
)

// mainRepoMarkers identify the protocol's own repositories by name.
var mainRepoMarkers = []string{"Git-Core-Protocol", "git-core", "ai-git-core"}

// Detection is the resolved scheduling posture for one repository.
type Detection struct {
	Repository      string `json:"repository"`
	IsPublic        bool   `json:"is_public"`
	Visibility      string `json:"visibility"`
	IsMainRepo      bool   `json:"is_main_repo"`
	ScheduleMode    string `json:"schedule_mode"`
	EnableSchedules bool   `json:"enable_schedules"`
	// Fallback is set when the visibility lookup failed and the private
	// default was assumed.
	Fallback bool `json:"fallback,omitempty"`
}

// Detector resolves repository visibility through gh.
type Detector struct {
	Runner execx.Runner
	Logger *slog.Logger
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// ResolveRepository picks the repository to analyze: the flag value when
// given, otherwise GITHUB_REPOSITORY.
func ResolveRepository(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("GITHUB_REPOSITORY"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("cidetect: repository not provided and GITHUB_REPOSITORY not set")
}

// Detect resolves the posture for repository. A failed visibility lookup
// degrades to the private defaults instead of failing: CI always needs an
// answer, and conservative is the safe one.
func (d *Detector) Detect(ctx context.Context, repository string) *Detection {
	det := &Detection{Repository: repository}

	isPublic, visibility, err := d.visibility(ctx, repository)
	if err != nil {
		d.logger().Warn("visibility lookup failed, assuming private", "repository", repository, "error", err)
		isPublic, visibility = false, "PRIVATE"
		det.Fallback = true
	}
	det.IsPublic = isPublic
	det.Visibility = visibility
	det.IsMainRepo = isMainRepo(repository)
	det.ScheduleMode, det.EnableSchedules = decide(det.IsPublic, det.IsMainRepo)
	return det
}

func (d *Detector) visibility(ctx context.Context, repository string) (bool, string, error) {
	args := []string{"repo", "view", repository, "--json", "isPrivate,visibility"}
	res, err := d.Runner.Run(ctx, "gh", args, execx.RunOpts{})
	if err != nil {
		return false, "", err
	}
	if res.ExitCode != 0 {
		return false, "", fmt.Errorf("gh exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	var info struct {
		IsPrivate  bool   `json:"isPrivate"`
		Visibility string `json:"visibility"` // PUBLIC, PRIVATE, INTERNAL
	}
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return false, "", fmt.Errorf("parse gh output: %w", err)
	}
	return !info.IsPrivate, info.Visibility, nil
}

func isMainRepo(repository string) bool {
	for _, marker := range mainRepoMarkers {
		if strings.Contains(repository, marker) {
			return true
		}
	}
	return false
}

// decide maps visibility and ownership to a schedule mode. Main private repos
// stay on schedules at reduced frequency; everyone else private goes
// event-only.
func decide(isPublic, isMainRepo bool) (mode string, enableSchedules bool) {
	switch {
	case isPublic:
		return ModeAggressive, true
	case isMainRepo:
		return ModeModerate, true
	default:
		return ModeConservative, false
	}
}

// WriteGithubOutput appends the detection to the GITHUB_OUTPUT file in the
// workflow-command format. Outside Actions (env unset) it does nothing.
func WriteGithubOutput(fsys vfs.FS, det *Detection) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "is_public=%t\n", det.IsPublic)
	fmt.Fprintf(&sb, "is_main_repo=%t\n", det.IsMainRepo)
	fmt.Fprintf(&sb, "enable_schedules=%t\n", det.EnableSchedules)
	fmt.Fprintf(&sb, "schedule_mode=%s\n", det.ScheduleMode)
	if err := fsys.AppendFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("cidetect: write GITHUB_OUTPUT: %w", err)
	}
	return nil
}
