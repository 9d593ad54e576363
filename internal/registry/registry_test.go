package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/logging"
)

type stubRule struct {
	meta domain.RuleMetadata
}

func (s stubRule) Metadata() domain.RuleMetadata { return s.meta }

func (s stubRule) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return domain.NewCheckResult(s.meta.Name), nil
}

type panickyMetadata struct{ stubRule }

func (panickyMetadata) Metadata() domain.RuleMetadata { panic("metadata exploded") }

func factoryFor(name string) domain.RuleFactory {
	return func(domain.RuleConfig) (domain.Rule, error) {
		return stubRule{meta: domain.RuleMetadata{Name: name, Version: "1.0.0"}}, nil
	}
}

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := New()
	if err := reg.Register("alpha", factoryFor("alpha")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := reg.Register("alpha", factoryFor("other"))
	if !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}

	f, ok := reg.Get("alpha")
	if !ok {
		t.Fatal("alpha not found")
	}
	rule, _ := f(domain.NewRuleConfig(nil))
	if rule.Metadata().Name != "alpha" {
		t.Error("duplicate registration must keep the first factory")
	}

	if err := reg.Register("", factoryFor("x")); err == nil {
		t.Error("expected error for empty name")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Error("expected error for nil factory")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 factory, got %d", reg.Len())
	}
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := New()
	reg.MustRegister("alpha", factoryFor("alpha"))
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	reg.MustRegister("alpha", factoryFor("alpha"))
}

func TestRegistry_Names(t *testing.T) {
	reg := New()
	reg.MustRegister("zeta", factoryFor("zeta"))
	reg.MustRegister("alpha", factoryFor("alpha"))
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestDiscover_OneRuleAndEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "naming", "empty")
	reg := New()
	reg.MustRegister("naming", factoryFor("naming"))

	cat, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("expected 1 rule, got %d", cat.Len())
	}
	if len(cat.Problems) != 1 {
		t.Errorf("expected empty directory reported, got %v", cat.Problems)
	}
	e, ok := cat.Get("naming")
	if !ok || e.Metadata.Version != "1.0.0" || e.Dir != filepath.Join(dir, "naming") {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestDiscover_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "a", "b", ".git", "__pycache__")
	reg := New()
	reg.MustRegister("a", factoryFor("a"))
	reg.MustRegister("b", factoryFor("b"))

	first, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Names(), second.Names()) {
		t.Errorf("discovery not idempotent: %v vs %v", first.Names(), second.Names())
	}
	if len(first.Problems) != 0 {
		t.Errorf("hidden directories must be ignored, got %v", first.Problems)
	}
}

func TestDiscover_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "boom", "broken", "good", "meta")
	reg := New()
	reg.MustRegister("boom", func(domain.RuleConfig) (domain.Rule, error) { panic("kaboom") })
	reg.MustRegister("broken", func(domain.RuleConfig) (domain.Rule, error) { return nil, errors.New("bad config") })
	reg.MustRegister("good", factoryFor("good"))
	reg.MustRegister("meta", func(domain.RuleConfig) (domain.Rule, error) { return panickyMetadata{}, nil })

	cat, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cat.Names(), []string{"good"}) {
		t.Errorf("expected only good rule, got %v", cat.Names())
	}
	if len(cat.Problems) != 3 {
		t.Errorf("expected 3 problems, got %v", cat.Problems)
	}
}

func TestDiscover_RejectsDuplicateMetadataName(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "first", "second")
	reg := New()
	reg.MustRegister("first", factoryFor("shared"))
	reg.MustRegister("second", factoryFor("shared"))

	cat, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	e, ok := cat.Get("shared")
	if !ok || e.Dir != filepath.Join(dir, "first") {
		t.Errorf("first implementation should win, got %+v", e)
	}
	if len(cat.Problems) != 1 {
		t.Errorf("expected duplicate reported, got %v", cat.Problems)
	}
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), New(), nil)
	var de domain.DomainError
	if !errors.As(err, &de) || de.Code != domain.ErrCodeDiscoveryError {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestCatalog_Enabled(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "a", "b", "c")
	reg := New()
	for _, n := range []string{"a", "b", "c"} {
		reg.MustRegister(n, factoryFor(n))
	}
	cat, err := Discover(dir, reg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		allow, deny []string
		want        []string
		unknown     []string
	}{
		{name: "all by default", want: []string{"a", "b", "c"}},
		{name: "deny wins", deny: []string{"b"}, want: []string{"a", "c"}},
		{name: "allow subset", allow: []string{"c", "a"}, want: []string{"a", "c"}},
		{name: "allow and deny", allow: []string{"a", "b"}, deny: []string{"a"}, want: []string{"b"}},
		{name: "unknown allow", allow: []string{"a", "zz"}, want: []string{"a"}, unknown: []string{"zz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := cat.Enabled(tt.allow, tt.deny)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("enabled = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(unknown, tt.unknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.unknown)
			}
		})
	}
}

func TestInstantiate_RecoversPanic(t *testing.T) {
	_, err := Instantiate("x", func(domain.RuleConfig) (domain.Rule, error) { panic("nope") }, domain.NewRuleConfig(nil))
	if err == nil {
		t.Fatal("expected error")
	}
	_, err = Instantiate("x", func(domain.RuleConfig) (domain.Rule, error) { return nil, nil }, domain.NewRuleConfig(nil))
	if err == nil {
		t.Fatal("expected error for nil rule")
	}
}
