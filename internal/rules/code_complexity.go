package rules

import (
	"context"
	"fmt"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/parser"
	"github.com/ludo-technologies/ccheck/internal/registry"
	sitter "github.com/smacker/go-tree-sitter"
)

// CodeComplexityName is the registered name of the complexity rule
const CodeComplexityName = "code_complexity"

const (
	defaultMaxComplexity     = 10
	defaultMaxNesting        = 4
	defaultMaxFunctionLength = 50
	defaultMaxClassMethods   = 20
)

// decisionPoints are the node types that add a path through a function
var decisionPoints = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"for_of_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

// nestingNodes open a new nesting level
var nestingNodes = map[string]bool{
	"if_statement":     true,
	"for_statement":    true,
	"for_in_statement": true,
	"for_of_statement": true,
	"while_statement":  true,
	"do_statement":     true,
	"switch_statement": true,
	"try_statement":    true,
}

func init() {
	registry.Register(CodeComplexityName, NewCodeComplexity)
}

// CodeComplexity reports JavaScript and TypeScript functions that are too
// complex, too deeply nested or too long, and classes with too many methods.
type CodeComplexity struct {
	Base
	maxComplexity     int
	maxNesting        int
	maxFunctionLength int
	maxClassMethods   int
	ignoreTests       bool
}

// NewCodeComplexity is the factory of the complexity rule
func NewCodeComplexity(cfg domain.RuleConfig) (domain.Rule, error) {
	meta := domain.RuleMetadata{
		Name:                CodeComplexityName,
		Version:             "1.0.0",
		Description:         "Functions stay within complexity, nesting and length limits",
		Category:            "maintainability",
		Tags:                []string{"javascript", "typescript", "complexity"},
		SupportsIncremental: true,
		SupportsParallel:    true,
		ConfigSchema: withSchema(map[string]domain.ParamSpec{
			"max_cyclomatic_complexity": {Type: "int", Default: defaultMaxComplexity, Description: "Maximum cyclomatic complexity per function"},
			"max_nesting_depth":         {Type: "int", Default: defaultMaxNesting, Description: "Maximum nested control structures per function"},
			"max_function_length":       {Type: "int", Default: defaultMaxFunctionLength, Description: "Maximum lines per function"},
			"max_class_methods":         {Type: "int", Default: defaultMaxClassMethods, Description: "Maximum methods per class"},
			"ignore_test_files":         {Type: "bool", Default: true, Description: "Skip test files"},
		}),
		EstimatedRuntime: "medium",
		MemoryUsage:      "medium",
	}
	return &CodeComplexity{
		Base:              NewBase(meta, cfg, scriptPatterns),
		maxComplexity:     cfg.Int("max_cyclomatic_complexity", defaultMaxComplexity),
		maxNesting:        cfg.Int("max_nesting_depth", defaultMaxNesting),
		maxFunctionLength: cfg.Int("max_function_length", defaultMaxFunctionLength),
		maxClassMethods:   cfg.Int("max_class_methods", defaultMaxClassMethods),
		ignoreTests:       cfg.Bool("ignore_test_files", true),
	}, nil
}

// ValidateConfig implements domain.ConfigValidator
func (r *CodeComplexity) ValidateConfig(cfg domain.RuleConfig) error {
	if err := r.Base.ValidateConfig(cfg); err != nil {
		return err
	}
	for _, key := range []string{"max_cyclomatic_complexity", "max_nesting_depth", "max_function_length", "max_class_methods"} {
		if n := cfg.Int(key, 1); n <= 0 {
			return domain.NewRuleError(CodeComplexityName, fmt.Sprintf("%s must be > 0, got %d", key, n), nil)
		}
	}
	return nil
}

// ShouldCheckFile implements domain.FileFilter
func (r *CodeComplexity) ShouldCheckFile(path, repoRoot string) bool {
	return !(r.ignoreTests && isTestFile(path))
}

// Check implements domain.Rule
func (r *CodeComplexity) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return r.Run(ctx, req, r.checkFile)
}

func (r *CodeComplexity) checkFile(ctx context.Context, f *File) ([]domain.Violation, error) {
	if !r.ShouldCheckFile(f.Rel, "") {
		return nil, nil
	}
	tree, err := parser.ParseFile(ctx, f.Rel, []byte(f.Content))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []domain.Violation
	for _, fn := range tree.Functions() {
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		if c := Complexity(fn.Node); c > r.maxComplexity {
			severity := domain.SeverityWarning
			if float64(c) > float64(r.maxComplexity)*1.5 {
				severity = domain.SeverityError
			}
			v := r.at(f.Rel, fn.Start, fmt.Sprintf("Function '%s' has high cyclomatic complexity (%d > %d)", name, c, r.maxComplexity), severity)
			v.CustomData = map[string]any{"complexity": c}
			out = append(out, v)
		}
		if n := fn.Lines(); n > r.maxFunctionLength {
			out = append(out, r.at(f.Rel, fn.Start, fmt.Sprintf("Function '%s' is too long (%d > %d lines)", name, n, r.maxFunctionLength), domain.SeverityWarning))
		}
		if d := NestingDepth(fn.Body()); d > r.maxNesting {
			out = append(out, r.at(f.Rel, fn.Start, fmt.Sprintf("Function '%s' has excessive nesting depth (%d > %d)", name, d, r.maxNesting), domain.SeverityWarning))
		}
	}
	for _, c := range tree.Classes() {
		if n := len(c.Methods()); n > r.maxClassMethods {
			out = append(out, r.at(f.Rel, c.Start, fmt.Sprintf("Class '%s' has too many methods (%d > %d)", c.Name, n, r.maxClassMethods), domain.SeverityWarning))
		}
	}
	return out, nil
}

func (r *CodeComplexity) at(rel string, pos parser.Position, msg string, severity domain.Severity) domain.Violation {
	v := r.Violation(rel, pos.Line, msg, severity)
	v.Column = pos.Column
	return v
}

// Complexity returns the cyclomatic complexity of a function node. Nested
// functions are measured on their own and do not contribute.
func Complexity(fn *sitter.Node) int {
	complexity := 1
	parser.Walk(fn, func(n *sitter.Node) bool {
		if n != fn && parser.IsFunction(n) {
			return false
		}
		if decisionPoints[n.Type()] {
			complexity++
		}
		if n.Type() == "binary_expression" {
			if op := parser.ChildByField(n, "operator"); op != nil {
				switch op.Type() {
				case "&&", "||", "??":
					complexity++
				}
			}
		}
		return true
	})
	return complexity
}

// NestingDepth returns the deepest nesting of control structures under n.
// An else-if chain counts as one level.
func NestingDepth(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return nesting(n, 0)
}

func nesting(n *sitter.Node, depth int) int {
	deepest := depth
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if parser.IsFunction(child) {
			continue
		}
		d := depth
		if nestingNodes[child.Type()] && !(child.Type() == "if_statement" && n.Type() == "else_clause") {
			d++
		}
		deepest = max(deepest, nesting(child, d))
	}
	return deepest
}
