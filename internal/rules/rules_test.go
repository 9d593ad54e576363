package rules

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/testutil"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{LineLengthName, TrailingWhitespaceName, NamingConventionsName, CodeComplexityName, GoNamingName} {
		factory, ok := registry.Default.Get(name)
		if !ok {
			t.Errorf("%s is not registered", name)
			continue
		}
		rule, err := factory(domain.NewRuleConfig(nil))
		if err != nil {
			t.Fatalf("%s: factory failed: %v", name, err)
		}
		meta := rule.Metadata()
		if meta.Name != name {
			t.Errorf("metadata name %q does not match registered name %q", meta.Name, name)
		}
		if _, ok := meta.ConfigSchema[config.MaxIssuesKey]; !ok {
			t.Errorf("%s: schema lacks %s", name, config.MaxIssuesKey)
		}
	}
}

func TestLineLength(t *testing.T) {
	root := testutil.NewRepo(t)
	long := strings.Repeat("x", 30)
	testutil.WriteFile(t, root, "a.txt", "short\n"+long+"\nimport "+long+"\n")
	testutil.WriteFile(t, root, "node_modules/dep.txt", long+"\n")

	result := testutil.RunRule(t, NewLineLength, map[string]any{
		"max_line_length": 20,
		"ignore_patterns": []any{"^import "},
	}, root)

	if result.FilesChecked != 1 || result.LinesChecked != 3 {
		t.Errorf("Expected 1 file and 3 lines, got %d and %d", result.FilesChecked, result.LinesChecked)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(result.Violations))
	}
	v := result.Violations[0]
	if v.Line != 2 || v.FilePath != "a.txt" || v.Severity != domain.SeverityError {
		t.Errorf("unexpected violation %+v", v)
	}
	if v.Message != "Line too long (30 > 20 characters)" {
		t.Errorf("unexpected message %q", v.Message)
	}
	if v.CodeSnippet != long || len(v.ContextBefore) != 1 {
		t.Errorf("code context not populated: %+v", v)
	}
	if result.Passed() {
		t.Error("error severity violation should fail the rule")
	}
}

func TestLineLength_Config(t *testing.T) {
	if _, err := NewLineLength(domain.NewRuleConfig(map[string]any{"ignore_patterns": []any{"("}})); err == nil {
		t.Error("invalid ignore pattern should fail instantiation")
	}
	rule, _ := NewLineLength(domain.NewRuleConfig(nil))
	v := rule.(domain.ConfigValidator)
	if err := v.ValidateConfig(domain.NewRuleConfig(map[string]any{"max_line_length": 0})); err == nil {
		t.Error("max_line_length 0 should be invalid")
	}
	if err := v.ValidateConfig(domain.NewRuleConfig(map[string]any{config.MaxIssuesKey: -1})); err == nil {
		t.Error("negative issue cap should be invalid")
	}
}

func TestMaxIssuesPerFile(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "many.txt", strings.Repeat(strings.Repeat("y", 10)+"\n", 5))

	result := testutil.RunRule(t, NewLineLength, map[string]any{
		"max_line_length":   5,
		config.MaxIssuesKey: 2,
	}, root)
	if got := testutil.ViolationLines(result.Violations); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("Expected lines [1 2], got %v", got)
	}
	if len(result.InfoMessages) != 1 {
		t.Errorf("truncation should be noted, got %v", result.InfoMessages)
	}
}

func TestExplicitFilesAndExclude(t *testing.T) {
	root := testutil.NewRepo(t)
	long := strings.Repeat("z", 50)
	testutil.WriteFile(t, root, "src/a.py", long+"\n")
	testutil.WriteFile(t, root, "src/b.py", long+"\n")
	testutil.WriteFile(t, root, "gen/c.py", long+"\n")

	rule, err := NewLineLength(domain.NewRuleConfig(map[string]any{"max_line_length": 10}))
	testutil.AssertNoError(t, err)

	result, err := rule.Check(context.Background(), domain.CheckRequest{
		RepoRoot: root,
		Files:    []string{"src/a.py", "missing.py"},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, result.FilesChecked)

	result, err = rule.Check(context.Background(), domain.CheckRequest{
		RepoRoot: root,
		Include:  []string{"**/*.py"},
		Exclude:  []string{"gen"},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, result.FilesChecked)
}

func TestCancelledContext(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "a.txt", "a\n")
	rule, _ := NewLineLength(domain.NewRuleConfig(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rule.Check(ctx, domain.CheckRequest{RepoRoot: root}); err == nil {
		t.Error("cancelled context should abort the check")
	}
}

func TestTrailingWhitespace_CheckAndFix(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "doc.md", "clean\ndirty  \ntabbed\t\nclean\n")

	result := testutil.RunRule(t, NewTrailingWhitespace, nil, root)
	if got := testutil.ViolationLines(result.Violations); !slices.Equal(got, []int{2, 3}) {
		t.Fatalf("Expected lines [2 3], got %v", got)
	}
	if !result.Passed() {
		t.Error("warnings alone should not fail the rule")
	}
	if result.Violations[0].Column != 6 || result.Violations[0].SuggestedFix != "dirty" {
		t.Errorf("unexpected violation %+v", result.Violations[0])
	}

	rule, _ := NewTrailingWhitespace(domain.NewRuleConfig(nil))
	fixer, ok := rule.(domain.Fixer)
	if !ok {
		t.Fatal("trailing_whitespace should implement Fixer")
	}
	fix, err := fixer.Fix(context.Background(), root, result.Violations)
	testutil.AssertNoError(t, err)
	if len(fix.FixedViolations) != 2 || !slices.Equal(fix.ModifiedFiles, []string{"doc.md"}) {
		t.Errorf("unexpected fix result %+v", fix)
	}
	if got := testutil.ReadFile(t, root, "doc.md"); got != "clean\ndirty\ntabbed\nclean\n" {
		t.Errorf("file not fixed: %q", got)
	}

	again := testutil.RunRule(t, NewTrailingWhitespace, nil, root)
	testutil.AssertEqual(t, 0, len(again.Violations))
}

func TestTrailingWhitespace_FixKeepsLatin1Bytes(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "legacy.txt", "caf\xe9 \r\nok\r\n")

	result := testutil.RunRule(t, NewTrailingWhitespace, nil, root)
	if got := testutil.ViolationLines(result.Violations); !slices.Equal(got, []int{1}) {
		t.Fatalf("Expected line [1], got %v", got)
	}

	rule, _ := NewTrailingWhitespace(domain.NewRuleConfig(nil))
	fix, err := rule.(domain.Fixer).Fix(context.Background(), root, result.Violations)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(fix.FixedViolations))
	if got := testutil.ReadFile(t, root, "legacy.txt"); got != "caf\xe9\r\nok\r\n" {
		t.Errorf("fix must only drop the trailing space, got %q", got)
	}
}

func TestTrailingWhitespace_FixMissingFile(t *testing.T) {
	rule, _ := NewTrailingWhitespace(domain.NewRuleConfig(nil))
	v := domain.NewViolation(TrailingWhitespaceName, "style", "gone.txt", 1, "Trailing whitespace", domain.SeverityWarning)
	fix, err := rule.(domain.Fixer).Fix(context.Background(), t.TempDir(), []domain.Violation{v})
	testutil.AssertNoError(t, err)
	if len(fix.FailedFixes) != 1 || fix.FailedFixes[0].ViolationID != v.ID {
		t.Errorf("missing file should be a failed fix, got %+v", fix)
	}
}

func TestNamingConventions(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "src/app.js", `class user_service {
  Fetch_Data() {}
  save() {}
}

function get_user() {}
function Component() {}
const loadAll = () => {};
`)
	testutil.WriteFile(t, root, "src/types.ts", "export class okName {}\n")
	testutil.WriteFile(t, root, "README.md", "function bad_name() {}\n")

	result := testutil.RunRule(t, NewNamingConventions, nil, root)

	var messages []string
	for _, v := range result.Violations {
		messages = append(messages, v.FilePath+":"+v.Message)
	}
	want := []string{
		"src/app.js:Class 'user_service' should use PascalCase (e.g., 'UserService')",
		"src/app.js:Function 'Fetch_Data' should use camelCase (e.g., 'fetchData')",
		"src/app.js:Function 'get_user' should use camelCase (e.g., 'getUser')",
		"src/types.ts:Class 'okName' should use PascalCase (e.g., 'OkName')",
	}
	if !slices.Equal(messages, want) {
		t.Errorf("unexpected violations:\n got %q\nwant %q", messages, want)
	}
	if result.Violations[0].SuggestedFix != "UserService" {
		t.Errorf("suggested fix missing: %+v", result.Violations[0])
	}
}

func TestNamingConventions_StrictFunctions(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "c.js", "function Component() {}\n")
	result := testutil.RunRule(t, NewNamingConventions, map[string]any{"allow_pascal_case_functions": false}, root)
	testutil.AssertEqual(t, 1, len(result.Violations))
}

func TestCaseConversion(t *testing.T) {
	tests := []struct {
		in, pascal, camel string
	}{
		{"user_service", "UserService", "userService"},
		{"fetchData", "FetchData", "fetchData"},
		{"GET_USER", "GetUser", "getUser"},
		{"my-widget", "MyWidget", "myWidget"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toPascalCase(tt.in); got != tt.pascal {
				t.Errorf("toPascalCase(%q) = %q, want %q", tt.in, got, tt.pascal)
			}
			if got := toCamelCase(tt.in); got != tt.camel {
				t.Errorf("toCamelCase(%q) = %q, want %q", tt.in, got, tt.camel)
			}
		})
	}
}

func TestComplexity(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		complexity int
		nesting    int
	}{
		{"straight", "function f() { return 1; }", 1, 0},
		{"if else-if", "function f(a) { if (a) { x(); } else if (!a) { y(); } }", 3, 1},
		{"logical", "function f(a, b) { return (a && b) || (c ?? d); }", 4, 0},
		{"loops", "function f(xs) { for (const x of xs) { while (x) { do {} while (x); } } }", 4, 3},
		{"switch", "function f(a) { switch (a) { case 1: break; case 2: break; default: } }", 3, 1},
		{"try", "function f() { try { g(); } catch (e) { h(); } }", 2, 1},
		{"ternary", "function f(a) { return a ? 1 : 2; }", 2, 0},
		{"nested fn ignored", "function f() { const g = () => { if (a) {} }; }", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := testutil.ParseSource(t, "c.js", tt.source)
			fn, ok := testutil.FindFunction(tree, "f")
			if !ok {
				t.Fatal("function f not found")
			}
			if got := Complexity(fn.Node); got != tt.complexity {
				t.Errorf("Complexity = %d, want %d", got, tt.complexity)
			}
			if got := NestingDepth(fn.Body()); got != tt.nesting {
				t.Errorf("NestingDepth = %d, want %d", got, tt.nesting)
			}
		})
	}
}

func TestCodeComplexity(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "src/logic.js", `function branchy(a, b, c) {
  if (a) { return 1; }
  if (b) { return 2; }
  if (c) { return 3; }
  return a && b ? 4 : 5;
}

function deep(a) {
  if (a) {
    for (;;) {
      while (a) {
        break;
      }
    }
  }
}

function long() {
  let x = 0;
  x++;
  x++;
  x++;
  return x;
}
`)
	testutil.WriteFile(t, root, "src/logic.test.js", "function branchy(a) { if (a) {} if (a) {} if (a) {} if (a) {} }\n")

	result := testutil.RunRule(t, NewCodeComplexity, map[string]any{
		"max_cyclomatic_complexity": 3,
		"max_nesting_depth":         2,
		"max_function_length":       6,
		"max_class_methods":         5,
	}, root)

	var got []string
	for _, v := range result.Violations {
		got = append(got, string(v.Severity)+":"+v.Message)
	}
	want := []string{
		"error:Function 'branchy' has high cyclomatic complexity (6 > 3)",
		"warning:Function 'deep' has high cyclomatic complexity (4 > 3)",
		"warning:Function 'deep' is too long (9 > 6 lines)",
		"warning:Function 'deep' has excessive nesting depth (3 > 2)",
		"warning:Function 'long' is too long (7 > 6 lines)",
	}
	if !slices.Equal(got, want) {
		t.Errorf("unexpected violations:\n got %q\nwant %q", got, want)
	}
	if result.FilesChecked != 2 {
		t.Errorf("test file is read but skipped, expected 2 files checked, got %d", result.FilesChecked)
	}
}

func TestCodeComplexity_ClassMethods(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "big.ts", "class Big {\n  a() {}\n  b() {}\n  c() {}\n}\n")
	result := testutil.RunRule(t, NewCodeComplexity, map[string]any{"max_class_methods": 2}, root)
	if len(result.Violations) != 1 || result.Violations[0].Message != "Class 'Big' has too many methods (3 > 2)" {
		t.Errorf("unexpected violations %+v", result.Violations)
	}
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/a.test.js", true},
		{"src/a.spec.ts", true},
		{"src/__tests__/a.js", true},
		{"pkg/a_test.go", true},
		{"src/contest.js", false},
		{"src/a.js", false},
	}
	for _, tt := range tests {
		if got := isTestFile(tt.path); got != tt.want {
			t.Errorf("isTestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGoNaming(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "pkg/store.go", `package pkg

import "errors"

var NotFound = errors.New("not found")

var ErrClosed = errors.New("closed")

const MAX_SIZE = 10

type User_Record struct{}

func (this *User_Record) Save() {}

func Load_All() {}

func helper_fn() {}
`)
	testutil.WriteFile(t, root, "pkg/store_test.go", `package pkg

import "testing"

func TestLoad_All(t *testing.T) {}
`)

	result := testutil.RunRule(t, NewGoNaming, nil, root)

	var got []string
	for _, v := range result.Violations {
		got = append(got, v.Message)
	}
	want := []string{
		"Error variable 'NotFound' should be prefixed with err or Err",
		"Exported identifier 'User_Record' should not contain underscores",
		"Receiver of 'Save' should not be named 'this'",
		"Exported identifier 'Load_All' should not contain underscores",
	}
	if !slices.Equal(got, want) {
		t.Errorf("unexpected violations:\n got %q\nwant %q", got, want)
	}
	if result.Violations[0].SuggestedFix != "ErrNotFound" {
		t.Errorf("Expected ErrNotFound suggestion, got %q", result.Violations[0].SuggestedFix)
	}
}

func TestGoNaming_SyntaxErrorIsWarning(t *testing.T) {
	root := testutil.NewRepo(t)
	testutil.WriteFile(t, root, "bad.go", "package bad\nfunc {\n")
	result := testutil.RunRule(t, NewGoNaming, nil, root)
	if !result.Success || len(result.Warnings) != 1 {
		t.Errorf("syntax error should surface as a warning, got %+v", result)
	}
}
