package app

import (
	"context"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/storage"
)

// HistoryUseCase reads recorded runs
type HistoryUseCase struct {
	ws *Workspace
}

// NewHistoryUseCase creates a new history use case
func NewHistoryUseCase(ws *Workspace) *HistoryUseCase {
	return &HistoryUseCase{ws: ws}
}

func (uc *HistoryUseCase) open(ctx context.Context) (*storage.DB, error) {
	db, err := storage.OpenSQLite(uc.ws.Config.HistoryPathIn(uc.ws.Root))
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, domain.NewOutputError("cannot prepare history database", err)
	}
	return db, nil
}

// Runs returns up to limit recorded runs, newest first
func (uc *HistoryUseCase) Runs(ctx context.Context, limit int) ([]storage.RunRow, error) {
	db, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListRuns(ctx, limit, 0)
}

// Violations returns the stored violations of run id at or above minSeverity
func (uc *HistoryUseCase) Violations(ctx context.Context, id string, minSeverity domain.Severity) ([]storage.ViolationRow, error) {
	db, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if ok, err := db.HasRun(ctx, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.NewInvalidInputError("no recorded run "+id, storage.ErrRunNotFound)
	}
	return db.ListViolations(ctx, id, minSeverity)
}

// Trend returns the violation counts of rule over its latest runs
func (uc *HistoryUseCase) Trend(ctx context.Context, rule string, limit int) ([]int, error) {
	db, err := uc.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.RuleTrend(ctx, rule, limit)
}
