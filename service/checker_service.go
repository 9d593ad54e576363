package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/logging"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/waiver"
)

// ErrRuleTimeout is recorded when a rule exceeds its time budget
var ErrRuleTimeout = errors.New("rule exceeded its time budget")

// RunRequest selects what one checker run does
type RunRequest struct {
	RepoRoot string
	// Rules are run in this order in the returned results
	Rules []string
	// Files optionally restricts every rule to these paths
	Files []string
	Fix   bool
}

// CheckerService runs rules, applies waivers and coordinates fixes
type CheckerService struct {
	catalog  *registry.Catalog
	cfg      *config.Config
	rulesDir string
	engine   *waiver.Engine
	usage    waiver.UsageStore
	pool     *WorkerPool
	fixes    *FixCoordinator
	logger   *slog.Logger
}

// CheckerOption configures a CheckerService
type CheckerOption func(*CheckerService)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) CheckerOption {
	return func(s *CheckerService) { s.logger = logging.OrDefault(l) }
}

// WithProgress reports rule progress through pm
func WithProgress(pm domain.ProgressManager) CheckerOption {
	return func(s *CheckerService) { s.pool.progress = pm }
}

// NewCheckerService creates the orchestrator. engine and usage may be nil,
// in which case no waivers apply and usage is not recorded.
func NewCheckerService(catalog *registry.Catalog, cfg *config.Config, rulesDir string, engine *waiver.Engine, usage waiver.UsageStore, opts ...CheckerOption) *CheckerService {
	if engine == nil {
		engine = waiver.NewEngine(nil)
	}
	s := &CheckerService{
		catalog:  catalog,
		cfg:      cfg,
		rulesDir: rulesDir,
		engine:   engine,
		usage:    usage,
		pool:     NewWorkerPool(&cfg.Settings),
		fixes:    NewFixCoordinator(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the requested rules. Every requested rule yields exactly one
// result; a rule that cannot run yields a failed result instead of an error.
func (s *CheckerService) Run(ctx context.Context, req RunRequest) ([]*domain.CheckResult, error) {
	runs := make([]*ruleRun, len(req.Rules))
	var parallel, sequential []*ruleRun
	for i, name := range req.Rules {
		r := &ruleRun{name: name, svc: s, req: req}
		runs[i] = r
		if entry, ok := s.catalog.Get(name); ok && entry.Metadata.SupportsParallel {
			parallel = append(parallel, r)
		} else {
			sequential = append(sequential, r)
		}
	}

	tasks := make([]domain.RuleTask, len(parallel))
	for i, r := range parallel {
		tasks[i] = r
	}
	if err := s.pool.Run(ctx, tasks); err != nil {
		s.logger.Debug("rule batch finished with errors", "error", err)
	}
	for _, r := range sequential {
		if ctx.Err() != nil {
			break
		}
		_ = r.Run(ctx)
	}

	results := make([]*domain.CheckResult, len(runs))
	for i, r := range runs {
		if r.result == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("rule was not run")
			}
			r.result = domain.NewFailedResult(r.name, err, 0)
		}
		results[i] = r.result
	}

	s.applyWaivers(results)
	if req.Fix {
		s.applyFixes(ctx, req.RepoRoot, runs)
	}
	return results, nil
}

// applyWaivers partitions the violations of each successful result. It runs
// after every check has joined, so usage is recorded from one goroutine.
func (s *CheckerService) applyWaivers(results []*domain.CheckResult) {
	for _, r := range results {
		if !r.Success {
			continue
		}
		remaining, waived := s.engine.Apply(s.usage, r.Violations, "")
		if remaining == nil {
			remaining = []domain.Violation{}
		}
		r.Violations = remaining
		r.WaivedViolations = append(r.WaivedViolations, waived...)
		r.WaiverCount = len(r.WaivedViolations)
	}
}

// applyFixes runs each fixer over its remaining violations, one rule at a time
func (s *CheckerService) applyFixes(ctx context.Context, repoRoot string, runs []*ruleRun) {
	for _, r := range runs {
		fixer, ok := r.rule.(domain.Fixer)
		if !ok || !r.result.Success || len(r.result.Violations) == 0 {
			continue
		}
		fix, err := s.fixes.Fix(ctx, fixer, repoRoot, r.result.Violations)
		if err != nil {
			s.logger.Warn("fix failed", "rule", r.name, "error", err)
			fix = failedFix(r.result.Violations, err, fix)
		}
		r.result.Fix = fix
		if len(fix.FixedViolations) == 0 {
			continue
		}
		fixed := fix.FixedSet()
		kept := r.result.Violations[:0:0]
		for _, v := range r.result.Violations {
			if _, ok := fixed[v.ID]; !ok {
				kept = append(kept, v)
			}
		}
		r.result.Violations = kept
	}
}

// failedFix records every violation not already fixed as a failed fix
func failedFix(violations []domain.Violation, err error, partial *domain.FixResult) *domain.FixResult {
	out := &domain.FixResult{FixedViolations: []string{}}
	if partial != nil {
		out = partial
	}
	done := out.FixedSet()
	for _, f := range out.FailedFixes {
		done[f.ViolationID] = struct{}{}
	}
	for _, v := range violations {
		if _, ok := done[v.ID]; !ok {
			out.FailedFixes = append(out.FailedFixes, domain.FailedFix{ViolationID: v.ID, FilePath: v.FilePath, Reason: err.Error()})
		}
	}
	return out
}

// ruleRun is one rule execution scheduled on the worker pool
type ruleRun struct {
	name   string
	svc    *CheckerService
	req    RunRequest
	rule   domain.Rule
	result *domain.CheckResult
}

func (r *ruleRun) RuleName() string { return r.name }

// Run stores the rule's result. The returned error only reports that the
// result is a failure.
func (r *ruleRun) Run(ctx context.Context) error {
	r.rule, r.result = r.svc.runRule(ctx, r.name, r.req)
	if !r.result.Success {
		return errors.New(r.result.ErrorMessage)
	}
	return nil
}

// runRule resolves configuration, instantiates, validates and checks one rule
func (s *CheckerService) runRule(ctx context.Context, name string, req RunRequest) (domain.Rule, *domain.CheckResult) {
	start := time.Now()
	logger := s.logger.With("rule", name)
	fail := func(err error) *domain.CheckResult {
		logger.Warn("rule failed", "error", err)
		return domain.NewFailedResult(name, err, time.Since(start))
	}

	entry, ok := s.catalog.Get(name)
	if !ok {
		return nil, fail(domain.NewRuleError(name, "not found", nil))
	}
	cfg, err := s.cfg.ResolveRuleConfig(s.rulesDir, entry.Metadata, s.engine.ParameterOverrides(name))
	if err != nil {
		return nil, fail(err)
	}
	rule, err := registry.Instantiate(name, entry.Factory, cfg)
	if err != nil {
		return nil, fail(err)
	}
	if v, ok := rule.(domain.ConfigValidator); ok {
		if err := safeValidate(v, cfg); err != nil {
			return rule, fail(domain.NewRuleError(name, "invalid configuration", err))
		}
	}

	checkReq := domain.CheckRequest{
		RepoRoot: req.RepoRoot,
		Files:    req.Files,
		Include:  s.cfg.FilePatterns,
		Exclude:  s.cfg.ExcludePatterns,
	}
	result, err := s.check(ctx, rule, checkReq)
	if err != nil {
		return rule, fail(err)
	}
	if result == nil {
		return rule, fail(domain.NewRuleError(name, "returned no result", nil))
	}

	result.RuleName = name
	if result.Metadata == nil {
		meta := entry.Metadata
		result.Metadata = &meta
	}
	if result.Violations == nil {
		result.Violations = []domain.Violation{}
	}
	if n := len(result.Violations); n > 0 {
		result.Violations = domain.DedupViolations(result.Violations)
		if dropped := n - len(result.Violations); dropped > 0 {
			logger.Debug("dropped duplicate violations", "count", dropped)
		}
	}
	if result.ExecutionTime == 0 {
		result.ExecutionTime = time.Since(start)
	}
	logger.Debug("rule finished", "violations", len(result.Violations), "elapsed", result.ExecutionTime)
	return rule, result
}

// check calls rule.Check with panic recovery and the soft time budget. On
// timeout the check keeps running in the background and its result is dropped.
func (s *CheckerService) check(ctx context.Context, rule domain.Rule, req domain.CheckRequest) (*domain.CheckResult, error) {
	budget := time.Duration(s.cfg.Settings.RuleTimeoutSeconds) * time.Second
	if budget <= 0 {
		return safeCheck(ctx, rule, req)
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		result *domain.CheckResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := safeCheck(ctx, rule, req)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (%s)", ErrRuleTimeout, budget)
		}
		return nil, ctx.Err()
	}
}

func safeValidate(v domain.ConfigValidator, cfg domain.RuleConfig) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during validation: %v", p)
		}
	}()
	return v.ValidateConfig(cfg)
}

func safeCheck(ctx context.Context, rule domain.Rule, req domain.CheckRequest) (result *domain.CheckResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during check: %v\n%s", p, debug.Stack())
		}
	}()
	return rule.Check(ctx, req)
}

// FixCoordinator serializes fixes that touch the same file
type FixCoordinator struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFixCoordinator creates a coordinator with no locks held
func NewFixCoordinator() *FixCoordinator {
	return &FixCoordinator{locks: make(map[string]*sync.Mutex)}
}

func (c *FixCoordinator) lockFor(path string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[path]
	if !ok {
		l = &sync.Mutex{}
		c.locks[path] = l
	}
	return l
}

// Fix holds the lock of every file named by violations while fixer runs,
// keyed by absolute path.
// Locks are taken in sorted path order. A panicking fixer becomes an error.
func (c *FixCoordinator) Fix(ctx context.Context, fixer domain.Fixer, repoRoot string, violations []domain.Violation) (result *domain.FixResult, err error) {
	for _, path := range uniquePaths(violations) {
		l := c.lockFor(filepath.Join(repoRoot, filepath.FromSlash(path)))
		l.Lock()
		defer l.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during fix: %v", p)
		}
	}()
	result, err = fixer.Fix(ctx, repoRoot, violations)
	if err == nil && result == nil {
		result = &domain.FixResult{FixedViolations: []string{}}
	}
	return result, err
}
