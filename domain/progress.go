package domain

import "context"

// ProgressManager creates progress trackers for long-running phases
type ProgressManager interface {
	StartTask(description string, total int) TaskProgress
	IsInteractive() bool
	Close()
}

// TaskProgress tracks one phase
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

// RuleTask is one rule check scheduled on a worker pool
type RuleTask interface {
	RuleName() string
	Run(ctx context.Context) error
}
