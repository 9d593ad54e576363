package waiver

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

var testNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func intp(n int) *int { return &n }

func datep(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func namingViolation() domain.Violation {
	return domain.Violation{
		ID:       "v1",
		RuleName: "naming",
		FilePath: "a.py",
		Line:     10,
		Column:   1,
		Message:  "Class 'foo' should use PascalCase",
		Severity: domain.SeverityWarning,
	}
}

func TestEngine_ScenarioLineWaiver(t *testing.T) {
	w := &domain.WaiverRule{
		ID:          "w1",
		Type:        domain.WaiverLineSpecific,
		FilePattern: "a.py",
		Line:        intp(10),
		Pattern:     "PascalCase",
		Active:      true,
	}
	engine := NewEngine([]*domain.WaiverRule{w}, WithClock(fixedClock))
	ledger := NewLedger()

	remaining, waived := engine.Apply(ledger, []domain.Violation{namingViolation()}, "a.py")

	if len(remaining) != 0 || len(waived) != 1 {
		t.Fatalf("expected violation to be waived, got remaining=%d waived=%d", len(remaining), len(waived))
	}
	u := ledger.Usage(w)
	if u.Count != 1 {
		t.Errorf("expected usage count 1, got %d", u.Count)
	}
	if !u.LastUsed.Equal(testNow) {
		t.Errorf("expected last used %v, got %v", testNow, u.LastUsed)
	}
}

func TestEngine_ScenarioExpiredWaiver(t *testing.T) {
	w := &domain.WaiverRule{
		ID:          "w1",
		Type:        domain.WaiverLineSpecific,
		FilePattern: "a.py",
		Line:        intp(10),
		Pattern:     "PascalCase",
		Expires:     datep("2000-01-01"),
		Active:      true,
	}
	engine := NewEngine([]*domain.WaiverRule{w}, WithClock(fixedClock))
	ledger := NewLedger()

	remaining, waived := engine.Apply(ledger, []domain.Violation{namingViolation()}, "a.py")

	if len(remaining) != 1 || len(waived) != 0 {
		t.Fatalf("expired waiver must not match, got remaining=%d waived=%d", len(remaining), len(waived))
	}
	if ledger.Usage(w).Count != 0 {
		t.Errorf("expired waiver must not record usage")
	}
}

func TestEngine_ScenarioBulkWaiver(t *testing.T) {
	w := &domain.WaiverRule{
		ID:          "bulk",
		Type:        domain.WaiverBulk,
		FilePattern: "generated/*.py",
		Active:      true,
	}
	violations := make([]domain.Violation, 50)
	for i := range violations {
		violations[i] = domain.Violation{
			ID:       fmt.Sprintf("v%d", i),
			RuleName: "naming",
			FilePath: fmt.Sprintf("generated/mod_%d.py", i),
			Line:     i + 1,
			Message:  "generated code",
			Severity: domain.SeverityError,
		}
	}
	engine := NewEngine([]*domain.WaiverRule{w}, WithClock(fixedClock))
	ledger := NewLedger()

	remaining, waived := engine.Apply(ledger, violations, "")
	if len(remaining) != 0 || len(waived) != 50 {
		t.Fatalf("expected all 50 waived, got remaining=%d waived=%d", len(remaining), len(waived))
	}
	if got := ledger.Usage(w).Count; got != 50 {
		t.Errorf("expected usage 50, got %d", got)
	}

	engine.Apply(ledger, violations[:5], "")
	if got := ledger.Usage(w).Count; got != 55 {
		t.Errorf("expected cumulative usage 55, got %d", got)
	}
}

func TestEngine_PartitionIsExhaustiveAndDisjoint(t *testing.T) {
	waivers := []*domain.WaiverRule{
		{ID: "p", Type: domain.WaiverPatternBased, Pattern: "TODO", Active: true},
		{ID: "r", Type: domain.WaiverRuleBased, RuleNames: []string{"style"}, FilePattern: "vendor/*", Active: true},
	}
	violations := []domain.Violation{
		{ID: "1", RuleName: "lint", FilePath: "a.go", Message: "TODO left"},
		{ID: "2", RuleName: "lint", FilePath: "b.go", Message: "bad name"},
		{ID: "3", RuleName: "style", FilePath: "vendor/x.go", Message: "tabs"},
		{ID: "4", RuleName: "style", FilePath: "src/x.go", Message: "tabs"},
		{ID: "5", RuleName: "lint", FilePath: "c.go", Message: "ok", CodeSnippet: "// TODO"},
	}
	engine := NewEngine(waivers, WithClock(fixedClock))

	remaining, waived := engine.Apply(NewLedger(), violations, "")

	if len(remaining)+len(waived) != len(violations) {
		t.Fatalf("partition lost violations: %d + %d != %d", len(remaining), len(waived), len(violations))
	}
	seen := map[string]int{}
	for _, v := range remaining {
		seen[v.ID]++
	}
	for _, v := range waived {
		seen[v.ID]++
	}
	for _, v := range violations {
		if seen[v.ID] != 1 {
			t.Errorf("violation %s appears %d times", v.ID, seen[v.ID])
		}
	}

	wantRemaining := []string{"2", "4"}
	if len(remaining) != len(wantRemaining) {
		t.Fatalf("expected remaining %v, got %d", wantRemaining, len(remaining))
	}
	for i, id := range wantRemaining {
		if remaining[i].ID != id {
			t.Errorf("remaining[%d] = %s, want %s", i, remaining[i].ID, id)
		}
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	first := &domain.WaiverRule{ID: "first", Type: domain.WaiverPatternBased, Pattern: "PascalCase", Active: true}
	second := &domain.WaiverRule{ID: "second", Type: domain.WaiverRuleBased, Active: true}
	engine := NewEngine([]*domain.WaiverRule{first, second}, WithClock(fixedClock))
	ledger := NewLedger()

	engine.Apply(ledger, []domain.Violation{namingViolation()}, "")

	if ledger.Usage(first).Count != 1 {
		t.Errorf("expected first waiver used once, got %d", ledger.Usage(first).Count)
	}
	if ledger.Usage(second).Count != 0 {
		t.Errorf("expected second waiver unused, got %d", ledger.Usage(second).Count)
	}
	if got := engine.Match(namingViolation(), ""); got != first {
		t.Errorf("Match returned %v, want first", got)
	}
}

func TestEngine_ExplicitFilePathOverridesViolationPath(t *testing.T) {
	w := &domain.WaiverRule{ID: "w", Type: domain.WaiverBulk, FilePattern: "legacy/*", Active: true}
	engine := NewEngine([]*domain.WaiverRule{w}, WithClock(fixedClock))

	v := namingViolation()
	if engine.Match(v, "") != nil {
		t.Error("violation path a.py should not match legacy/*")
	}
	if engine.Match(v, "legacy/a.py") == nil {
		t.Error("explicit file path should be used for matching")
	}
}

func TestEngine_NilUsageStore(t *testing.T) {
	w := &domain.WaiverRule{ID: "w", Type: domain.WaiverRuleBased, Active: true}
	engine := NewEngine([]*domain.WaiverRule{w})
	_, waived := engine.Apply(nil, []domain.Violation{namingViolation()}, "")
	if len(waived) != 1 {
		t.Errorf("expected waived without usage store, got %d", len(waived))
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	w := &domain.WaiverRule{ID: "w"}
	ledger := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ledger.Record(w, testNow)
			}
		}()
	}
	wg.Wait()

	if got := ledger.Usage(w).Count; got != 1000 {
		t.Errorf("expected 1000 records, got %d", got)
	}
}

func TestEngine_ParameterOverrides(t *testing.T) {
	waivers := []*domain.WaiverRule{
		{ID: "a", Type: domain.WaiverRuleBased, RuleNames: []string{"line_length"}, Active: true,
			ParameterOverrides: map[string]any{"max_line_length": 140, "strict": true}},
		{ID: "b", Type: domain.WaiverRuleBased, RuleNames: []string{"line_length"}, Active: true,
			ParameterOverrides: map[string]any{"max_line_length": 160}},
		{ID: "expired", Type: domain.WaiverRuleBased, RuleNames: []string{"line_length"}, Active: true,
			Expires: datep("2020-01-01"), ParameterOverrides: map[string]any{"max_line_length": 10}},
		{ID: "other", Type: domain.WaiverRuleBased, RuleNames: []string{"naming"}, Active: true,
			ParameterOverrides: map[string]any{"style": "snake"}},
		{ID: "inactive", Type: domain.WaiverRuleBased, RuleNames: []string{"line_length"}, Active: false,
			ParameterOverrides: map[string]any{"strict": false}},
	}
	engine := NewEngine(waivers, WithClock(fixedClock))

	got := engine.ParameterOverrides("line_length")
	if got["max_line_length"] != 160 {
		t.Errorf("expected later waiver to win, got %v", got["max_line_length"])
	}
	if got["strict"] != true {
		t.Errorf("expected strict override kept, got %v", got["strict"])
	}
	if _, ok := got["style"]; ok {
		t.Error("override for another rule leaked")
	}
}
