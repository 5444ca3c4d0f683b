// Package journal provides durable storage for reconciliation history.
// Uses SQLite with WAL mode; every run and its per-path outcomes are
// recorded so past upgrades stay auditable.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iberi22/gitcore/internal/reconcile"
	"github.com/iberi22/gitcore/internal/vfs"
)

//go:embed schema.sql
var schemaSQL string

// Dir is the journal's home under a project root. The reconciler never
// touches this directory; it is excluded from every snapshot.
const Dir = ".gitcore"

// FileName is the database file inside Dir.
const FileName = "journal.db"

// Run is one recorded reconciliation, counters flattened for display.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Mode          string
	DryRun        bool
	Source        string
	VersionBefore string
	VersionAfter  string
	PlanDigest    string
	Counts        reconcile.Counts
}

// PathRecord is one per-path outcome within a run.
type PathRecord struct {
	Seq     int
	Action  string
	Path    string
	Outcome string
	Err     string
}

// Journal wraps the SQLite database holding run history.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Idempotent: safe to call against an existing journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent command invocations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure journal: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// OpenAt opens the journal in its conventional location under projectRoot,
// creating the directory if needed.
func OpenAt(fsys vfs.FS, projectRoot string) (*Journal, error) {
	dir := filepath.Join(projectRoot, Dir)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return Open(filepath.Join(dir, FileName))
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// RecordRun stores a finished report and its per-path results in one
// transaction. ON CONFLICT(id) DO NOTHING makes re-recording a run ID
// idempotent; the path rows are only written for a fresh insert.
func (j *Journal) RecordRun(ctx context.Context, rep *reconcile.Report) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	counts := rep.Counts()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, mode, dry_run, source, version_before, version_after, plan_digest,
		 copied, skipped, deleted, migrated, excluded, moved, restored, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rep.RunID,
		rep.StartedAt.UTC().Format(time.RFC3339),
		rep.FinishedAt.UTC().Format(time.RFC3339),
		rep.Mode.String(),
		rep.DryRun,
		rep.Source,
		rep.VersionBefore,
		rep.VersionAfter,
		rep.PlanDigest,
		counts.Copied,
		counts.Skipped,
		counts.Deleted,
		counts.Migrated,
		counts.Excluded,
		counts.Moved,
		counts.Restored,
		counts.Failed,
	)
	if err != nil {
		return fmt.Errorf("record run: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Run ID already recorded; keep the first write.
		return tx.Commit()
	}

	for i, res := range rep.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_paths (run_id, seq, action, path, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			rep.RunID,
			i,
			string(res.Op.Action),
			res.Op.Path,
			string(res.Outcome),
			res.Err,
		)
		if err != nil {
			return fmt.Errorf("record run: insert path %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

// History returns recorded runs matching the filter, newest first.
func (j *Journal) History(ctx context.Context, f Filter) ([]Run, error) {
	query, params := compileHistory(f)
	rows, err := j.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started, finished string
	err := rows.Scan(
		&r.ID, &started, &finished, &r.Mode, &r.DryRun, &r.Source,
		&r.VersionBefore, &r.VersionAfter, &r.PlanDigest,
		&r.Counts.Copied, &r.Counts.Skipped, &r.Counts.Deleted, &r.Counts.Migrated,
		&r.Counts.Excluded, &r.Counts.Moved, &r.Counts.Restored, &r.Counts.Failed,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return Run{}, fmt.Errorf("scan run %s: finished_at: %w", r.ID, err)
	}
	return r, nil
}

// RunPaths returns the per-path outcomes of one run in plan order.
func (j *Journal) RunPaths(ctx context.Context, runID string) ([]PathRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, action, path, outcome, error
		FROM run_paths
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run paths: %w", err)
	}
	defer rows.Close()

	var records []PathRecord
	for rows.Next() {
		var p PathRecord
		if err := rows.Scan(&p.Seq, &p.Action, &p.Path, &p.Outcome, &p.Err); err != nil {
			return nil, fmt.Errorf("scan run path: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run paths: %w", err)
	}

	if records == nil {
		records = []PathRecord{}
	}
	return records, nil
}
