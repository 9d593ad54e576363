// Package storage records checker runs in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/ludo-technologies/ccheck/domain"
)

// ErrRunNotFound is returned when a run id is not stored
var ErrRunNotFound = errors.New("run not found")

// DB is the run history backed by SQLite
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path
func OpenSQLite(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, domain.NewOutputError("cannot create history directory", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

// Close closes the database
func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist
func (db *DB) CreateSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
  id               TEXT PRIMARY KEY,
  started_at       TEXT NOT NULL,   -- RFC3339Nano
  repo_root        TEXT,
  version          TEXT,
  passed           INTEGER NOT NULL,
  rules_run        INTEGER NOT NULL,
  total_violations INTEGER NOT NULL,
  waived           INTEGER NOT NULL,
  run_json         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rule_results (
  run_id       TEXT NOT NULL,
  rule_name    TEXT NOT NULL,
  success      INTEGER NOT NULL,
  passed       INTEGER NOT NULL,
  violations   INTEGER NOT NULL,
  waived       INTEGER NOT NULL,
  execution_ms INTEGER NOT NULL,
  error        TEXT,
  PRIMARY KEY (run_id, rule_name),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS violations (
  id        TEXT NOT NULL,
  run_id    TEXT NOT NULL,
  rule_name TEXT NOT NULL,
  file_path TEXT,
  line      INTEGER,
  severity  TEXT,
  message   TEXT,
  PRIMARY KEY (id, run_id),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_violations_run ON violations(run_id);
CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule_name);
`)
	return err
}

// SaveRun upserts a run report and rewrites its rule results and violations
func (db *DB) SaveRun(ctx context.Context, run *domain.RunReport) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := run.StartedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, repo_root, version, passed, rules_run, total_violations, waived, run_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, repo_root=excluded.repo_root,
           version=excluded.version, passed=excluded.passed, rules_run=excluded.rules_run,
           total_violations=excluded.total_violations, waived=excluded.waived, run_json=excluded.run_json`,
		run.ID, ts, run.RepoRoot, run.Version, run.Summary.Passed, run.Summary.RulesRun,
		run.Summary.TotalViolations, run.Summary.Waived, string(b),
	); err != nil {
		return err
	}

	for _, table := range []string{"rule_results", "violations"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
	}

	ruleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rule_results (run_id, rule_name, success, passed, violations, waived, execution_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ruleStmt.Close()

	violationStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO violations (id, run_id, rule_name, file_path, line, severity, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer violationStmt.Close()

	for _, r := range run.Results {
		if _, err := ruleStmt.ExecContext(ctx,
			run.ID, r.RuleName, r.Success, r.Passed(), len(r.Violations), len(r.WaivedViolations),
			r.ExecutionTime.Milliseconds(), r.ErrorMessage,
		); err != nil {
			return err
		}
		for _, v := range r.Violations {
			if _, err := violationStmt.ExecContext(ctx,
				v.ID, run.ID, v.RuleName, v.FilePath, v.Line, string(v.Severity), v.Message,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full run report from its stored JSON
func (db *DB) LoadRun(ctx context.Context, id string) (*domain.RunReport, error) {
	var s string
	row := db.conn.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var run domain.RunReport
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// HasRun reports whether a run id is stored
func (db *DB) HasRun(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
