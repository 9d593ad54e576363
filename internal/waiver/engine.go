package waiver

import (
	"sync"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

// UsageStore records which waivers matched during a run
type UsageStore interface {
	Record(w *domain.WaiverRule, at time.Time)
	Usage(w *domain.WaiverRule) domain.WaiverUsage
}

// Ledger is an in-memory UsageStore safe for concurrent use
type Ledger struct {
	mu    sync.Mutex
	usage map[*domain.WaiverRule]domain.WaiverUsage
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{usage: make(map[*domain.WaiverRule]domain.WaiverUsage)}
}

// Record increments the usage count of w
func (l *Ledger) Record(w *domain.WaiverRule, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.usage[w]
	u.Count++
	u.LastUsed = at
	l.usage[w] = u
}

// Usage returns the usage recorded for w
func (l *Ledger) Usage(w *domain.WaiverRule) domain.WaiverUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[w]
}

// Engine applies an ordered waiver list to violations
type Engine struct {
	waivers []*domain.WaiverRule
	now     func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source used for expiry and usage timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over waivers in match order
func NewEngine(waivers []*domain.WaiverRule, opts ...Option) *Engine {
	e := &Engine{waivers: waivers, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Waivers returns the engine's waivers in match order
func (e *Engine) Waivers() []*domain.WaiverRule {
	return e.waivers
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// Match returns the first waiver exempting v, or nil
func (e *Engine) Match(v domain.Violation, filePath string) *domain.WaiverRule {
	return e.match(v, filePath, e.now())
}

func (e *Engine) match(v domain.Violation, filePath string, now time.Time) *domain.WaiverRule {
	if filePath == "" {
		filePath = v.FilePath
	}
	for _, w := range e.waivers {
		if Matches(w, v, filePath, now) {
			return w
		}
	}
	return nil
}

// Apply partitions violations into remaining and waived, preserving order.
// Each waived violation records one use of the first waiver that matched it.
// An empty filePath matches each violation against its own FilePath.
func (e *Engine) Apply(usage UsageStore, violations []domain.Violation, filePath string) (remaining, waived []domain.Violation) {
	now := e.now()
	remaining = make([]domain.Violation, 0, len(violations))
	for _, v := range violations {
		w := e.match(v, filePath, now)
		if w == nil {
			remaining = append(remaining, v)
			continue
		}
		if usage != nil {
			usage.Record(w, now)
		}
		waived = append(waived, v)
	}
	return remaining, waived
}

// ParameterOverrides merges the parameter overrides of every active,
// unexpired rule waiver scoped to rule, in waiver order
func (e *Engine) ParameterOverrides(rule string) map[string]any {
	now := e.now()
	out := map[string]any{}
	for _, w := range e.waivers {
		if w.Type != domain.WaiverRuleBased || len(w.ParameterOverrides) == 0 {
			continue
		}
		if !w.Active || w.IsExpired(now) || !w.AppliesToRule(rule) {
			continue
		}
		for k, v := range w.ParameterOverrides {
			out[k] = v
		}
	}
	return out
}
