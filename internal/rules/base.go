// Package rules contains the built-in consistency rules. Each rule registers
// its factory with registry.Default from init.
package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/pathmatch"
	"github.com/ludo-technologies/ccheck/internal/repo"
	"github.com/ludo-technologies/ccheck/internal/source"
)

// Shared parameter names
const (
	ParamExcludePatterns = "exclude_patterns"
	ParamIgnorePatterns  = "ignore_patterns"
)

// defaultExcludes are skipped by every built-in rule
var defaultExcludes = []string{"node_modules", "vendor", "venv", ".venv", "__pycache__", "dist", "build"}

// commonSchema returns the parameters every built-in rule understands
func commonSchema() map[string]domain.ParamSpec {
	return map[string]domain.ParamSpec{
		config.MaxIssuesKey: {
			Type:        "int",
			Default:     config.DefaultMaxIssuesPerFile,
			Description: "Maximum violations reported per file (0 = unlimited)",
		},
		ParamExcludePatterns: {
			Type:        "list",
			Default:     defaultExcludes,
			Description: "Glob patterns of files and directories the rule skips",
		},
	}
}

// withSchema merges extra parameters into the common schema
func withSchema(extra map[string]domain.ParamSpec) map[string]domain.ParamSpec {
	schema := commonSchema()
	for k, v := range extra {
		schema[k] = v
	}
	return schema
}

// File is one repository file handed to a rule's per-file check
type File struct {
	Abs     string
	Rel     string
	Content string
	Lines   []string
}

// FileCheck inspects one file and returns its violations
type FileCheck func(ctx context.Context, f *File) ([]domain.Violation, error)

// Base carries the behavior shared by the built-in rules: file selection,
// tolerant reading, the per-file issue cap and violation construction.
type Base struct {
	meta      domain.RuleMetadata
	cfg       domain.RuleConfig
	patterns  []string
	excludes  []string
	maxIssues int
}

// NewBase builds the shared rule state from metadata and resolved config
func NewBase(meta domain.RuleMetadata, cfg domain.RuleConfig, patterns []string) Base {
	return Base{
		meta:      meta,
		cfg:       cfg,
		patterns:  patterns,
		excludes:  cfg.Strings(ParamExcludePatterns, defaultExcludes),
		maxIssues: cfg.Int(config.MaxIssuesKey, config.DefaultMaxIssuesPerFile),
	}
}

// Metadata implements domain.Rule
func (b *Base) Metadata() domain.RuleMetadata {
	return b.meta
}

// Config returns the resolved configuration
func (b *Base) Config() domain.RuleConfig {
	return b.cfg
}

// FilePatterns implements domain.FilePatterner
func (b *Base) FilePatterns() []string {
	return b.patterns
}

// ValidateConfig implements domain.ConfigValidator for the shared parameters
func (b *Base) ValidateConfig(cfg domain.RuleConfig) error {
	if n := cfg.Int(config.MaxIssuesKey, 0); n < 0 {
		return domain.NewRuleError(b.meta.Name, fmt.Sprintf("%s must be >= 0, got %d", config.MaxIssuesKey, n), nil)
	}
	return nil
}

// Files returns the absolute paths the rule inspects for req
func (b *Base) Files(req domain.CheckRequest) ([]string, error) {
	include := b.patterns
	if len(include) == 0 {
		include = req.Include
	}
	excludes := append(append([]string(nil), b.excludes...), req.Exclude...)
	collector := repo.NewCollector(req.RepoRoot, include, excludes)
	if len(req.Files) > 0 {
		return collector.Filter(req.Files), nil
	}
	return collector.Collect()
}

// Run checks every selected file with check and assembles the result.
// Unreadable files become warnings. Violations beyond the per-file cap are
// dropped and noted in the info messages.
func (b *Base) Run(ctx context.Context, req domain.CheckRequest, check FileCheck) (*domain.CheckResult, error) {
	start := time.Now()
	result := domain.NewCheckResult(b.meta.Name)
	meta := b.meta
	result.Metadata = &meta

	files, err := b.Files(req)
	if err != nil {
		return nil, domain.NewRuleError(b.meta.Name, "cannot collect files", err)
	}

	for _, abs := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := repo.Rel(req.RepoRoot, abs)
		content, ok := source.Read(abs)
		if !ok {
			result.Warnings = append(result.Warnings,
				b.Violation(rel, 0, "Could not read file", domain.SeverityWarning))
			continue
		}
		f := &File{Abs: abs, Rel: rel, Content: content, Lines: source.Lines(content)}
		result.FilesChecked++
		result.LinesChecked += len(f.Lines)

		found, err := check(ctx, f)
		if err != nil {
			result.Warnings = append(result.Warnings,
				b.Violation(rel, 0, fmt.Sprintf("Error processing file: %v", err), domain.SeverityWarning))
			continue
		}
		if b.maxIssues > 0 && len(found) > b.maxIssues {
			result.InfoMessages = append(result.InfoMessages,
				fmt.Sprintf("%s: %d violations, reporting the first %d", rel, len(found), b.maxIssues))
			found = found[:b.maxIssues]
		}
		for _, v := range found {
			result.AddViolation(v.WithContext(source.ContextFromLines(f.Lines, v.Line, source.DefaultContextLines)))
		}
	}

	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Violation creates a violation attributed to the rule
func (b *Base) Violation(rel string, line int, message string, severity domain.Severity) domain.Violation {
	return domain.NewViolation(b.meta.Name, b.meta.Category, rel, line, message, severity)
}

// compilePatterns compiles regular expressions, reporting the first invalid one
func compilePatterns(rule string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, domain.NewRuleError(rule, fmt.Sprintf("invalid pattern %q", p), err)
		}
		out = append(out, re)
	}
	return out, nil
}

// matchesAny reports whether s matches any of res
func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// isTestFile reports whether rel looks like a test file
func isTestFile(rel string) bool {
	base := filepath.Base(rel)
	return pathmatch.MatchAny([]string{"*.test.*", "*.spec.*", "*_test.*", "test_*"}, base) ||
		pathmatch.MatchAny([]string{"__tests__/*", "*/__tests__/*"}, rel)
}
