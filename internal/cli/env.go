package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/iberi22/gitcore/internal/execx"
	"github.com/iberi22/gitcore/internal/journal"
	"github.com/iberi22/gitcore/internal/vfs"
)

// Env carries the process-level dependencies every command runs against.
// Production wiring comes from DefaultEnv; tests substitute in-memory
// filesystems, scripted runners, fixed ids and pinned clocks.
type Env struct {
	FS     vfs.FS
	Runner execx.Runner
	IDs    journal.IDGenerator
	Now    func() time.Time
}

// DefaultEnv returns the real environment: the host filesystem, real
// subprocesses, UUIDv7 run ids and the wall clock.
func DefaultEnv() *Env {
	return &Env{
		FS:     vfs.NewRealFS(),
		Runner: execx.NewRealRunner(),
		IDs:    journal.UUIDGenerator{},
		Now:    time.Now,
	}
}

// newLogger builds the diagnostic logger for one invocation. Diagnostics
// go to the command's error stream so JSON on stdout stays parseable.
// Verbose raises the level from Warn to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
