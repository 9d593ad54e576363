package storage

import (
	"context"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

// RunRow is a lightweight listing row
type RunRow struct {
	ID              string    `json:"id" yaml:"id"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	RepoRoot        string    `json:"repo_root,omitempty" yaml:"repo_root,omitempty"`
	Version         string    `json:"version,omitempty" yaml:"version,omitempty"`
	Passed          bool      `json:"passed" yaml:"passed"`
	RulesRun        int       `json:"rules_run" yaml:"rules_run"`
	TotalViolations int       `json:"total_violations" yaml:"total_violations"`
	Waived          int       `json:"waived" yaml:"waived"`
}

// ViolationRow is one stored violation
type ViolationRow struct {
	ID       string          `json:"id" yaml:"id"`
	RuleName string          `json:"rule_name" yaml:"rule_name"`
	FilePath string          `json:"file_path" yaml:"file_path"`
	Line     int             `json:"line" yaml:"line"`
	Severity domain.Severity `json:"severity" yaml:"severity"`
	Message  string          `json:"message" yaml:"message"`
}

// severityRank mirrors domain.Severity.Rank in SQL
const severityRank = `(CASE severity WHEN 'critical' THEN 4 WHEN 'error' THEN 3 WHEN 'warning' THEN 2 WHEN 'info' THEN 1 ELSE 0 END)`

// ListRuns returns runs newest first
func (db *DB) ListRuns(ctx context.Context, limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT id, started_at, repo_root, version, passed, rules_run, total_violations, waived
		  FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAt string
		if err := rows.Scan(&rr.ID, &startedAt, &rr.RepoRoot, &rr.Version, &rr.Passed, &rr.RulesRun, &rr.TotalViolations, &rr.Waived); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rr.StartedAt = t
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListViolations returns the violations of a run at or above minSeverity,
// most serious first
func (db *DB) ListViolations(ctx context.Context, runID string, minSeverity domain.Severity) ([]ViolationRow, error) {
	q := `
		SELECT id, rule_name, file_path, line, severity, message
		  FROM violations
		 WHERE run_id = ?
		   AND ` + severityRank + ` >= ?
		 ORDER BY ` + severityRank + ` DESC, rule_name, file_path, line, id`
	rows, err := db.conn.QueryContext(ctx, q, runID, minSeverity.Rank())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ViolationRow
	for rows.Next() {
		var v ViolationRow
		var severity string
		if err := rows.Scan(&v.ID, &v.RuleName, &v.FilePath, &v.Line, &severity, &v.Message); err != nil {
			return nil, err
		}
		v.Severity = domain.Severity(severity)
		out = append(out, v)
	}
	return out, rows.Err()
}

// RuleTrend returns the remaining violation count of rule in each of the
// latest runs that executed it, newest first
func (db *DB) RuleTrend(ctx context.Context, rule string, limit int) ([]int, error) {
	const q = `
		SELECT rr.violations
		  FROM rule_results rr
		  JOIN runs r ON r.id = rr.run_id
		 WHERE rr.rule_name = ?
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ?`
	rows, err := db.conn.QueryContext(ctx, q, rule, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
