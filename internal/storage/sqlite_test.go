package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return db
}

func sampleRun(id string, startedAt time.Time, violations ...domain.Violation) *domain.RunReport {
	result := domain.NewCheckResult("line_length")
	for _, v := range violations {
		result.AddViolation(v)
	}
	result.ExecutionTime = 1500 * time.Millisecond
	failed := domain.NewFailedResult("broken", errors.New("boom"), 0)
	return &domain.RunReport{
		ID:        id,
		Version:   "test",
		RepoRoot:  "/repo",
		StartedAt: startedAt,
		Results:   []*domain.CheckResult{result, failed},
		Summary: domain.RunSummary{
			RulesRun:        2,
			TotalViolations: len(violations),
			Passed:          false,
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v1 := domain.NewViolation("line_length", "style", "a.go", 3, "Line too long", domain.SeverityError)
	v2 := domain.NewViolation("line_length", "style", "b.go", 9, "Line too long", domain.SeverityWarning)
	run := sampleRun("run-1", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), v1, v2)

	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	// Saving again replaces rather than duplicates
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	loaded, err := db.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.RepoRoot != "/repo" || len(loaded.Results) != 2 {
		t.Errorf("unexpected run %+v", loaded)
	}
	if loaded.Results[0].Violations[0].ID != v1.ID {
		t.Error("violation IDs should survive the round trip")
	}

	rows, err := db.ListViolations(ctx, "run-1", domain.SeverityInfo)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != v1.ID {
		t.Errorf("expected error first, got %+v", rows)
	}
	rows, err = db.ListViolations(ctx, "run-1", domain.SeverityError)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("severity filter should keep 1 row, got %d", len(rows))
	}

	ok, err := db.HasRun(ctx, "run-1")
	if err != nil || !ok {
		t.Errorf("HasRun = %v, %v", ok, err)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	ok, err := db.HasRun(context.Background(), "missing")
	if err != nil || ok {
		t.Errorf("HasRun(missing) = %v, %v", ok, err)
	}
}

func TestListRunsAndTrend(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		var vs []domain.Violation
		for j := 0; j <= i; j++ {
			vs = append(vs, domain.NewViolation("line_length", "style", "a.go", j+1, "long", domain.SeverityError))
		}
		if err := db.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour), vs...)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("unexpected order %+v", runs)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started_at not parsed: %v", runs[0].StartedAt)
	}
	if runs[0].TotalViolations != 3 || runs[0].RulesRun != 2 {
		t.Errorf("unexpected counters %+v", runs[0])
	}

	trend, err := db.RuleTrend(ctx, "line_length", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 || trend[0] != 3 || trend[2] != 1 {
		t.Errorf("unexpected trend %v", trend)
	}
}
