package rules

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/registry"
)

// LineLengthName is the registered name of the line length rule
const LineLengthName = "line_length"

const defaultMaxLineLength = 120

func init() {
	registry.Register(LineLengthName, NewLineLength)
}

// LineLength reports lines longer than max_line_length characters
type LineLength struct {
	Base
	maxLength int
	ignore    []*regexp.Regexp
}

// NewLineLength is the factory of the line length rule
func NewLineLength(cfg domain.RuleConfig) (domain.Rule, error) {
	ignore, err := compilePatterns(LineLengthName, cfg.Strings(ParamIgnorePatterns, nil))
	if err != nil {
		return nil, err
	}
	meta := domain.RuleMetadata{
		Name:                LineLengthName,
		Version:             "1.0.0",
		Description:         "Lines must not exceed the configured length",
		Category:            "style",
		Tags:                []string{"formatting"},
		SupportsIncremental: true,
		SupportsParallel:    true,
		ConfigSchema: withSchema(map[string]domain.ParamSpec{
			"max_line_length": {Type: "int", Default: defaultMaxLineLength, Description: "Maximum characters per line"},
			ParamIgnorePatterns: {Type: "list", Description: "Regular expressions of lines to skip"},
		}),
		EstimatedRuntime: "fast",
		MemoryUsage:      "low",
	}
	return &LineLength{
		Base:      NewBase(meta, cfg, nil),
		maxLength: cfg.Int("max_line_length", defaultMaxLineLength),
		ignore:    ignore,
	}, nil
}

// ValidateConfig implements domain.ConfigValidator
func (r *LineLength) ValidateConfig(cfg domain.RuleConfig) error {
	if err := r.Base.ValidateConfig(cfg); err != nil {
		return err
	}
	if n := cfg.Int("max_line_length", defaultMaxLineLength); n <= 0 {
		return domain.NewRuleError(LineLengthName, fmt.Sprintf("max_line_length must be > 0, got %d", n), nil)
	}
	return nil
}

// Check implements domain.Rule
func (r *LineLength) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return r.Run(ctx, req, r.checkFile)
}

func (r *LineLength) checkFile(_ context.Context, f *File) ([]domain.Violation, error) {
	var out []domain.Violation
	for i, line := range f.Lines {
		n := utf8.RuneCountInString(line)
		if n <= r.maxLength || matchesAny(r.ignore, line) {
			continue
		}
		v := r.Violation(f.Rel, i+1, fmt.Sprintf("Line too long (%d > %d characters)", n, r.maxLength), domain.SeverityError)
		v.Column = r.maxLength + 1
		v.CustomData = map[string]any{"length": n, "max_length": r.maxLength}
		out = append(out, v)
	}
	return out, nil
}
