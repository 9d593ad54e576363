// Package testutil provides helper functions for testing ccheck components
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/parser"
)

// ParseSource parses source as if it were the file at path. The tree is
// closed when the test ends.
func ParseSource(t *testing.T, path, source string) *parser.Tree {
	t.Helper()
	tree, err := parser.ParseFile(context.Background(), path, []byte(source))
	if err != nil {
		t.Fatalf("Failed to parse test code: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

// FindFunction returns the first function in tree named name
func FindFunction(tree *parser.Tree, name string) (parser.Function, bool) {
	for _, fn := range tree.Functions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return parser.Function{}, false
}

// WriteFile writes content to dir/rel, creating parent directories
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// ReadFile returns the content of dir/rel
func ReadFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", rel, err)
	}
	return string(data)
}

// NewRepo creates a temporary repository root containing a .git directory
func NewRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git: %v", err)
	}
	return root
}

// RunRule builds a rule from factory with params and checks the whole repository
func RunRule(t *testing.T, factory domain.RuleFactory, params map[string]any, root string) *domain.CheckResult {
	t.Helper()
	rule, err := factory(domain.NewRuleConfig(params))
	if err != nil {
		t.Fatalf("Failed to build rule: %v", err)
	}
	result, err := rule.Check(context.Background(), domain.CheckRequest{RepoRoot: root})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	return result
}

// ViolationLines returns the line numbers of violations in order
func ViolationLines(violations []domain.Violation) []int {
	lines := make([]int, len(violations))
	for i, v := range violations {
		lines[i] = v.Line
	}
	return lines
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}
