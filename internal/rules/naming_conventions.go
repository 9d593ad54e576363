package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/parser"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NamingConventionsName is the registered name of the naming rule
const NamingConventionsName = "naming_conventions"

// scriptPatterns are the files the tree-sitter rules inspect
var scriptPatterns = []string{"**/*.js", "**/*.jsx", "**/*.mjs", "**/*.cjs", "**/*.ts", "**/*.tsx"}

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	pascalRe     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	camelRe      = regexp.MustCompile(`^[_$]*[a-z][A-Za-z0-9]*$`)
	wordSplitRe  = regexp.MustCompile(`[_\-\s.$]+`)
	humpRe       = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

func init() {
	registry.Register(NamingConventionsName, NewNamingConventions)
}

// NamingConventions checks JavaScript and TypeScript declarations: classes
// use PascalCase, functions and methods use camelCase.
type NamingConventions struct {
	Base
	allowPascalFunctions bool
}

// NewNamingConventions is the factory of the naming rule
func NewNamingConventions(cfg domain.RuleConfig) (domain.Rule, error) {
	meta := domain.RuleMetadata{
		Name:                NamingConventionsName,
		Version:             "1.0.0",
		Description:         "Classes use PascalCase and functions use camelCase",
		Category:            "naming",
		Tags:                []string{"javascript", "typescript"},
		SupportsIncremental: true,
		SupportsParallel:    true,
		ConfigSchema: withSchema(map[string]domain.ParamSpec{
			"allow_pascal_case_functions": {
				Type:        "bool",
				Default:     true,
				Description: "Accept PascalCase function names such as component constructors",
			},
		}),
		EstimatedRuntime: "medium",
		MemoryUsage:      "medium",
	}
	return &NamingConventions{
		Base:                 NewBase(meta, cfg, scriptPatterns),
		allowPascalFunctions: cfg.Bool("allow_pascal_case_functions", true),
	}, nil
}

// Check implements domain.Rule
func (r *NamingConventions) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return r.Run(ctx, req, r.checkFile)
}

func (r *NamingConventions) checkFile(ctx context.Context, f *File) ([]domain.Violation, error) {
	tree, err := parser.ParseFile(ctx, f.Rel, []byte(f.Content))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []domain.Violation
	for _, c := range tree.Classes() {
		if !identifierRe.MatchString(c.Name) || pascalRe.MatchString(c.Name) {
			continue
		}
		fix := toPascalCase(c.Name)
		out = append(out, r.naming(f.Rel, c.Start, fmt.Sprintf("Class '%s' should use PascalCase (e.g., '%s')", c.Name, fix), fix))
	}
	for _, fn := range tree.Functions() {
		if !identifierRe.MatchString(fn.Name) || camelRe.MatchString(fn.Name) {
			continue
		}
		if r.allowPascalFunctions && fn.Kind != parser.Method && pascalRe.MatchString(fn.Name) {
			continue
		}
		fix := toCamelCase(fn.Name)
		out = append(out, r.naming(f.Rel, fn.Start, fmt.Sprintf("Function '%s' should use camelCase (e.g., '%s')", fn.Name, fix), fix))
	}
	return out, nil
}

func (r *NamingConventions) naming(rel string, pos parser.Position, msg, fix string) domain.Violation {
	v := r.Violation(rel, pos.Line, msg, domain.SeverityWarning)
	v.Column = pos.Column
	v.SuggestedFix = fix
	return v
}

// words splits an identifier on separators and case humps
func words(name string) []string {
	name = humpRe.ReplaceAllString(name, "${1}_${2}")
	var out []string
	for _, w := range wordSplitRe.Split(name, -1) {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func toPascalCase(name string) string {
	title := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range words(name) {
		b.WriteString(title.String(w))
	}
	return b.String()
}

func toCamelCase(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		return name
	}
	r := []rune(pascal)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
