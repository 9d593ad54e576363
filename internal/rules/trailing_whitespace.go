package rules

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/repo"
)

// TrailingWhitespaceName is the registered name of the trailing whitespace rule
const TrailingWhitespaceName = "trailing_whitespace"

func init() {
	registry.Register(TrailingWhitespaceName, NewTrailingWhitespace)
}

// TrailingWhitespace reports and strips spaces and tabs at the end of lines
type TrailingWhitespace struct {
	Base
}

// NewTrailingWhitespace is the factory of the trailing whitespace rule
func NewTrailingWhitespace(cfg domain.RuleConfig) (domain.Rule, error) {
	meta := domain.RuleMetadata{
		Name:                TrailingWhitespaceName,
		Version:             "1.0.0",
		Description:         "Lines must not end with spaces or tabs",
		Category:            "style",
		Tags:                []string{"formatting", "autofix"},
		SupportsIncremental: true,
		SupportsParallel:    true,
		SupportsAutoFix:     true,
		ConfigSchema:        commonSchema(),
		EstimatedRuntime:    "fast",
		MemoryUsage:         "low",
	}
	return &TrailingWhitespace{Base: NewBase(meta, cfg, nil)}, nil
}

// Check implements domain.Rule
func (r *TrailingWhitespace) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return r.Run(ctx, req, r.checkFile)
}

func (r *TrailingWhitespace) checkFile(_ context.Context, f *File) ([]domain.Violation, error) {
	var out []domain.Violation
	for i, line := range f.Lines {
		trimmed := strings.TrimRight(line, " \t")
		if len(trimmed) == len(line) {
			continue
		}
		v := r.Violation(f.Rel, i+1, "Trailing whitespace", domain.SeverityWarning)
		v.Column = len(trimmed) + 1
		v.SuggestedFix = trimmed
		out = append(out, v)
	}
	return out, nil
}

// Fix implements domain.Fixer. Each file named by a violation is rewritten
// once with trailing whitespace removed from the reported lines.
func (r *TrailingWhitespace) Fix(ctx context.Context, repoRoot string, violations []domain.Violation) (*domain.FixResult, error) {
	byFile := make(map[string][]domain.Violation)
	for _, v := range violations {
		if v.RuleName == TrailingWhitespaceName {
			byFile[v.FilePath] = append(byFile[v.FilePath], v)
		}
	}
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	result := &domain.FixResult{FixedViolations: []string{}}
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fixed, err := r.fixFile(repo.Abs(repoRoot, rel), byFile[rel])
		if err != nil {
			for _, v := range byFile[rel] {
				result.FailedFixes = append(result.FailedFixes, domain.FailedFix{
					ViolationID: v.ID, FilePath: rel, Reason: err.Error(),
				})
			}
			continue
		}
		if len(fixed) > 0 {
			result.FixedViolations = append(result.FixedViolations, fixed...)
			result.ModifiedFiles = append(result.ModifiedFiles, rel)
		}
	}
	return result, nil
}

// fixFile edits the raw bytes so the encoding and every untouched byte of
// the file are preserved
func (r *TrailingWhitespace) fixFile(path string, violations []domain.Violation) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	lines := bytes.SplitAfter(content, []byte("\n"))

	var fixed []string
	for _, v := range violations {
		if v.Line < 1 || v.Line > len(lines) {
			continue
		}
		line := lines[v.Line-1]
		var eol []byte
		switch {
		case bytes.HasSuffix(line, []byte("\r\n")):
			eol = []byte("\r\n")
		case bytes.HasSuffix(line, []byte("\n")):
			eol = []byte("\n")
		}
		body := bytes.TrimRight(line[:len(line)-len(eol)], " \t")
		lines[v.Line-1] = append(body[:len(body):len(body)], eol...)
		fixed = append(fixed, v.ID)
	}
	if len(fixed) == 0 {
		return nil, nil
	}
	if err := os.WriteFile(path, bytes.Join(lines, nil), info.Mode().Perm()); err != nil {
		return nil, err
	}
	return fixed, nil
}
