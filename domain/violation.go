package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Severity represents how serious a violation is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from least to most serious
var AllSeverities = []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}

// ParseSeverity converts a string into a Severity, case-insensitively
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityError:
		return SeverityError, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", NewInvalidInputError(fmt.Sprintf("unknown severity %q", s), nil)
}

// Rank orders severities; higher is more serious. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// IsBlocking reports whether a violation of this severity fails its rule
func (s Severity) IsBlocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// KeyMessageLength bounds the message prefix used in Violation.Key
const KeyMessageLength = 100

// CodeContext is the source text surrounding a reported line
type CodeContext struct {
	Snippet string   `json:"code_snippet" yaml:"code_snippet"`
	Before  []string `json:"context_before" yaml:"context_before"`
	After   []string `json:"context_after" yaml:"context_after"`
}

// Violation is a single reported instance of a rule being broken
type Violation struct {
	ID           string `json:"id" yaml:"id"`
	RuleName     string `json:"rule_name" yaml:"rule_name"`
	RuleCategory string `json:"rule_category,omitempty" yaml:"rule_category,omitempty"`

	FilePath  string `json:"file_path" yaml:"file_path"`
	Line      int    `json:"line" yaml:"line"`
	Column    int    `json:"column" yaml:"column"`
	EndLine   int    `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty" yaml:"end_column,omitempty"`

	Message     string   `json:"message" yaml:"message"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Severity    Severity `json:"severity" yaml:"severity"`

	CodeSnippet   string   `json:"code_snippet,omitempty" yaml:"code_snippet,omitempty"`
	ContextBefore []string `json:"context_before,omitempty" yaml:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty" yaml:"context_after,omitempty"`

	// SuggestedFix is empty when the rule has no suggestion
	SuggestedFix string `json:"suggested_fix,omitempty" yaml:"suggested_fix,omitempty"`

	Tags       []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	References []string       `json:"references,omitempty" yaml:"references,omitempty"`
	CustomData map[string]any `json:"custom_data,omitempty" yaml:"custom_data,omitempty"`
}

// NewViolation creates a violation with a fresh unique ID
func NewViolation(rule, category, filePath string, line int, message string, severity Severity) Violation {
	return Violation{
		ID:           uuid.NewString(),
		RuleName:     rule,
		RuleCategory: category,
		FilePath:     filePath,
		Line:         line,
		Message:      message,
		Severity:     severity,
	}
}

// Key returns the identity two reports of the same finding share. The
// orchestrator drops repeated keys with DedupViolations.
func (v Violation) Key() string {
	msg := v.Message
	if r := []rune(msg); len(r) > KeyMessageLength {
		msg = string(r[:KeyMessageLength])
	}
	return fmt.Sprintf("%s:%s:%d:%s", v.RuleName, v.FilePath, v.Line, msg)
}

// DedupViolations keeps the first violation of each Key, preserving order
func DedupViolations(violations []Violation) []Violation {
	seen := make(map[string]struct{}, len(violations))
	out := violations[:0:0]
	for _, v := range violations {
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// WaiverLine renders the violation as "file:line:col: rule message"
func (v Violation) WaiverLine() string {
	return fmt.Sprintf("%s:%d:%d: %s %s", v.FilePath, v.Line, v.Column, v.RuleName, v.Message)
}

// String implements fmt.Stringer
func (v Violation) String() string {
	return v.WaiverLine()
}

// AddTag adds a tag, keeping tags sorted and unique
func (v *Violation) AddTag(tag string) {
	i := sort.SearchStrings(v.Tags, tag)
	if i < len(v.Tags) && v.Tags[i] == tag {
		return
	}
	v.Tags = append(v.Tags, "")
	copy(v.Tags[i+1:], v.Tags[i:])
	v.Tags[i] = tag
}

// HasTag reports whether the violation carries tag
func (v Violation) HasTag(tag string) bool {
	i := sort.SearchStrings(v.Tags, tag)
	return i < len(v.Tags) && v.Tags[i] == tag
}

// WithContext returns a copy with snippet and surrounding lines populated
func (v Violation) WithContext(ctx CodeContext) Violation {
	v.CodeSnippet = ctx.Snippet
	v.ContextBefore = ctx.Before
	v.ContextAfter = ctx.After
	return v
}
