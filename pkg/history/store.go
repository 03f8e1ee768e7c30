// Package history persists run outcomes in a local SQLite database so
// consecutive runs can be compared: which tests regressed since their
// last recorded outcome and which were fixed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

// Store wraps the SQLite database holding run history.
type Store struct {
	db *sql.DB
}

// Open opens (and creates/migrates) the database at the given path.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600) //#nosec G304 -- db path comes from user configuration
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	// v1: runs and results tables
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  started_at  INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL,
  total       INTEGER NOT NULL,
  passed      INTEGER NOT NULL,
  failed      INTEGER NOT NULL,
  errors      INTEGER NOT NULL
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS results (
  run_id      TEXT NOT NULL,
  test_name   TEXT NOT NULL,
  status      TEXT NOT NULL,
  pixel_diff  INTEGER,
  error       TEXT,
  duration_ms INTEGER NOT NULL,
  PRIMARY KEY (run_id, test_name),
  FOREIGN KEY (run_id) REFERENCES runs(id)
);
`)
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_results_test ON results(test_name);`)
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = 1
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores a run summary and its per-test results in one
// transaction. Recording the same run ID twice is an error.
func (s *Store) RecordRun(ctx context.Context, summary *runner.Summary) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store not initialized")
	}
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("summary has no run ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, started_at, duration_ms, total, passed, failed, errors)
VALUES(?,?,?,?,?,?,?);
`, summary.RunID, summary.StartTime.UnixMilli(), summary.Duration.Milliseconds(),
		summary.Total, summary.Passed, summary.Failed, summary.Errors)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record run: %w", err)
	}

	for _, res := range summary.Results {
		var pixelDiff sql.NullInt64
		if res.Comparison != nil {
			pixelDiff = sql.NullInt64{Int64: int64(res.Comparison.PixelDiff), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO results(run_id, test_name, status, pixel_diff, error, duration_ms)
VALUES(?,?,?,?,?,?);
`, summary.RunID, res.Name, string(res.Status), pixelDiff, res.Error, res.Duration.Milliseconds())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record result %s: %w", res.Name, err)
		}
	}

	return tx.Commit()
}

// LastStatuses returns the most recently recorded status of every known
// test.
func (s *Store) LastStatuses(ctx context.Context) (map[string]runner.Status, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	return s.lastStatusesExcluding(ctx, "")
}

// lastStatusesExcluding scans results oldest run first so the newest
// entry for each test wins. excludeRunID skips a run that is being
// evaluated but may already be recorded.
func (s *Store) lastStatusesExcluding(ctx context.Context, excludeRunID string) (map[string]runner.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT results.run_id, results.test_name, results.status
FROM results JOIN runs ON runs.id = results.run_id
ORDER BY runs.started_at ASC, runs.id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]runner.Status)
	for rows.Next() {
		var runID, name, status string
		if err := rows.Scan(&runID, &name, &status); err != nil {
			return nil, err
		}
		if excludeRunID != "" && runID == excludeRunID {
			continue
		}
		out[name] = runner.Status(status)
	}
	return out, rows.Err()
}

// Delta is the difference between a run and the recorded history.
type Delta struct {
	Regressed []string // passed in their last recorded run, failed now
	Fixed     []string // failed in their last recorded run, passed now
}

// Delta compares a summary against the last recorded outcome of each of
// its tests. The summary's own run is ignored even when already recorded,
// so Delta can be computed before or after RecordRun. Errored tests are
// left out of both lists: an error says the harness broke, not that the
// screen changed.
func (s *Store) Delta(ctx context.Context, summary *runner.Summary) (*Delta, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	if summary == nil {
		return nil, fmt.Errorf("nil summary")
	}

	prev, err := s.lastStatusesExcluding(ctx, summary.RunID)
	if err != nil {
		return nil, err
	}

	delta := &Delta{}
	for _, res := range summary.Results {
		switch {
		case res.Status == runner.StatusFailed && prev[res.Name] == runner.StatusPassed:
			delta.Regressed = append(delta.Regressed, res.Name)
		case res.Status == runner.StatusPassed && prev[res.Name] == runner.StatusFailed:
			delta.Fixed = append(delta.Fixed, res.Name)
		}
	}
	return delta, nil
}
