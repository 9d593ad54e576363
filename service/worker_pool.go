package service

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchTimeout bounds one batch of concurrent rule checks
const DefaultBatchTimeout = 30 * time.Minute

// RuleFailure is the error of one task in a batch
type RuleFailure struct {
	Rule string
	Err  error
}

func (f *RuleFailure) Error() string {
	return f.Rule + ": " + f.Err.Error()
}

func (f *RuleFailure) Unwrap() error {
	return f.Err
}

// WorkerPool runs rule tasks on a bounded number of goroutines. A failing
// task never cancels its siblings.
type WorkerPool struct {
	workers      int
	batchTimeout time.Duration
	progress     domain.ProgressManager
	label        string
}

// NewWorkerPool sizes a pool from the checker settings: one worker when
// parallel execution is off, max_workers when set, else one per CPU
func NewWorkerPool(settings *config.SettingsConfig) *WorkerPool {
	workers := runtime.NumCPU()
	switch {
	case !settings.ParallelExecution:
		workers = 1
	case settings.MaxWorkers > 0:
		workers = settings.MaxWorkers
	}
	return &WorkerPool{
		workers:      workers,
		batchTimeout: DefaultBatchTimeout,
		label:        "Checking",
	}
}

// Workers returns the concurrency limit
func (p *WorkerPool) Workers() int {
	return p.workers
}

// SetWorkers changes the concurrency limit; n <= 0 is ignored
func (p *WorkerPool) SetWorkers(n int) {
	if n > 0 {
		p.workers = n
	}
}

// SetBatchTimeout changes the batch deadline; d <= 0 is ignored
func (p *WorkerPool) SetBatchTimeout(d time.Duration) {
	if d > 0 {
		p.batchTimeout = d
	}
}

// Run executes every task and joins their failures, in task order, into one
// error. Tasks not started before the batch deadline or cancellation fail
// with the context error.
func (p *WorkerPool) Run(ctx context.Context, tasks []domain.RuleTask) error {
	if len(tasks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.batchTimeout)
	defer cancel()

	bar := startTask(p.progress, p.label, len(tasks))
	defer bar.Complete()

	failures := make([]error, len(tasks))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, t := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = &RuleFailure{Rule: t.RuleName(), Err: err}
				return nil
			}
			bar.Describe(t.RuleName())
			if err := t.Run(ctx); err != nil {
				failures[i] = &RuleFailure{Rule: t.RuleName(), Err: err}
			}
			bar.Increment(1)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failures...)
}
