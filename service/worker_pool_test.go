package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
)

type fakeTask struct {
	name  string
	err   error
	delay time.Duration
	ran   atomic.Bool
	// active and peak track concurrency across tasks sharing them
	active *atomic.Int32
	peak   *atomic.Int32
}

func (t *fakeTask) RuleName() string { return t.name }

func (t *fakeTask) Run(ctx context.Context) error {
	t.ran.Store(true)
	if t.active != nil {
		n := t.active.Add(1)
		defer t.active.Add(-1)
		for {
			old := t.peak.Load()
			if n <= old || t.peak.CompareAndSwap(old, n) {
				break
			}
		}
	}
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return t.err
}

type countingProgress struct {
	mu        sync.Mutex
	started   int
	total     int
	increment int
	completed int
}

func (p *countingProgress) StartTask(_ string, total int) domain.TaskProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	p.total = total
	return p
}

func (p *countingProgress) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.increment += n
}

func (p *countingProgress) Describe(string) {}

func (p *countingProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
}

func (p *countingProgress) IsInteractive() bool { return false }
func (p *countingProgress) Close()              {}

func asTasks(ts ...*fakeTask) []domain.RuleTask {
	out := make([]domain.RuleTask, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name     string
		settings config.SettingsConfig
		want     int
	}{
		{"sequential", config.SettingsConfig{ParallelExecution: false, MaxWorkers: 8}, 1},
		{"max workers", config.SettingsConfig{ParallelExecution: true, MaxWorkers: 3}, 3},
		{"cpu count", config.SettingsConfig{ParallelExecution: true}, runtime.NumCPU()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewWorkerPool(&tt.settings).Workers(); got != tt.want {
				t.Errorf("Workers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWorkerPool_Setters(t *testing.T) {
	p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true, MaxWorkers: 2})
	p.SetWorkers(0)
	p.SetWorkers(-1)
	if p.Workers() != 2 {
		t.Errorf("invalid worker counts should be ignored, got %d", p.Workers())
	}
	p.SetWorkers(5)
	if p.Workers() != 5 {
		t.Errorf("Workers() = %d, want 5", p.Workers())
	}
	p.SetBatchTimeout(0)
	if p.batchTimeout != DefaultBatchTimeout {
		t.Errorf("zero timeout should be ignored, got %v", p.batchTimeout)
	}
}

func TestWorkerPool_Run(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true})
		if err := p.Run(context.Background(), nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("failures do not stop siblings", func(t *testing.T) {
		boom := errors.New("boom")
		a := &fakeTask{name: "a"}
		b := &fakeTask{name: "b", err: boom}
		c := &fakeTask{name: "c", delay: 10 * time.Millisecond}
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true, MaxWorkers: 2})

		err := p.Run(context.Background(), asTasks(a, b, c))
		if !errors.Is(err, boom) {
			t.Fatalf("expected joined error to wrap boom, got %v", err)
		}
		var failure *RuleFailure
		if !errors.As(err, &failure) || failure.Rule != "b" {
			t.Errorf("expected a RuleFailure for b, got %v", err)
		}
		for _, task := range []*fakeTask{a, b, c} {
			if !task.ran.Load() {
				t.Errorf("task %s did not run", task.name)
			}
		}
	})

	t.Run("respects worker limit", func(t *testing.T) {
		var active, peak atomic.Int32
		var tasks []*fakeTask
		for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
			tasks = append(tasks, &fakeTask{name: name, delay: 5 * time.Millisecond, active: &active, peak: &peak})
		}
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true, MaxWorkers: 2})
		if err := p.Run(context.Background(), asTasks(tasks...)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d exceeds limit 2", peak.Load())
		}
	})

	t.Run("batch timeout", func(t *testing.T) {
		slow := &fakeTask{name: "slow", delay: time.Second}
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true})
		p.SetBatchTimeout(10 * time.Millisecond)
		err := p.Run(context.Background(), asTasks(slow))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		task := &fakeTask{name: "never"}
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true})
		err := p.Run(ctx, asTasks(task))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if task.ran.Load() {
			t.Error("task should not run after cancellation")
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		pm := &countingProgress{}
		p := NewWorkerPool(&config.SettingsConfig{ParallelExecution: true})
		p.progress = pm
		if err := p.Run(context.Background(), asTasks(&fakeTask{name: "a"}, &fakeTask{name: "b"})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pm.started != 1 || pm.total != 2 || pm.increment != 2 || pm.completed != 1 {
			t.Errorf("progress = %+v", pm)
		}
	})
}
