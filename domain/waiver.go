package domain

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// WaiverType selects the matching predicate of a waiver
type WaiverType string

const (
	WaiverLineSpecific WaiverType = "line_specific"
	WaiverPatternBased WaiverType = "pattern_based"
	WaiverRuleBased    WaiverType = "rule_based"
	WaiverBulk         WaiverType = "bulk"
	WaiverTemporary    WaiverType = "temporary"
)

// AllWaiverTypes lists waiver types in policy-file section order
var AllWaiverTypes = []WaiverType{
	WaiverLineSpecific,
	WaiverPatternBased,
	WaiverRuleBased,
	WaiverBulk,
	WaiverTemporary,
}

// LifecycleTemporary marks a waiver intended to be short-lived
const LifecycleTemporary = "temporary"

// WaiverRule is an approved suppression policy. It never creates or
// modifies a violation, it only decides whether one is exempt.
type WaiverRule struct {
	ID          string     `json:"id" yaml:"id"`
	Type        WaiverType `json:"type" yaml:"type"`
	Pattern     string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	RuleNames   []string   `json:"rule_names,omitempty" yaml:"rule_names,omitempty"`
	FilePattern string     `json:"file_pattern,omitempty" yaml:"file_pattern,omitempty"`
	Line        *int       `json:"line,omitempty" yaml:"line,omitempty"`
	Column      *int       `json:"column,omitempty" yaml:"column,omitempty"`

	CodeContent    string     `json:"code_content,omitempty" yaml:"code_content,omitempty"`
	MessagePattern string     `json:"message_pattern,omitempty" yaml:"message_pattern,omitempty"`
	SeverityFilter []Severity `json:"severity_filter,omitempty" yaml:"severity_filter,omitempty"`

	Reason         string     `json:"reason" yaml:"reason"`
	ApprovedBy     string     `json:"approved_by" yaml:"approved_by"`
	CreatedDate    *time.Time `json:"created_date,omitempty" yaml:"created_date,omitempty"`
	Expires        *time.Time `json:"expires,omitempty" yaml:"expires,omitempty"`
	IssueReference string     `json:"issue_reference,omitempty" yaml:"issue_reference,omitempty"`

	ParameterOverrides map[string]any `json:"parameter_overrides,omitempty" yaml:"parameter_overrides,omitempty"`

	// LifecycleHint is descriptive only; it never changes matching
	LifecycleHint string `json:"lifecycle_hint,omitempty" yaml:"lifecycle_hint,omitempty"`
	Active        bool   `json:"active" yaml:"active"`

	// Source is the policy file the waiver was loaded from
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	messageRe    *regexp.Regexp
	messageReErr error
}

// Compile prepares MessagePattern for matching. It is safe to call more than once.
func (w *WaiverRule) Compile() error {
	w.messageRe, w.messageReErr = nil, nil
	if w.MessagePattern == "" {
		return nil
	}
	re, err := regexp.Compile(w.MessagePattern)
	if err != nil {
		w.messageReErr = fmt.Errorf("waiver %s: invalid message_pattern %q: %w", w.ID, w.MessagePattern, err)
		return w.messageReErr
	}
	w.messageRe = re
	return nil
}

// MessageRegexp returns the compiled message pattern, or nil when none is
// declared or it does not compile
func (w *WaiverRule) MessageRegexp() *regexp.Regexp {
	if w.messageRe == nil && w.messageReErr == nil && w.MessagePattern != "" {
		_ = w.Compile()
	}
	return w.messageRe
}

// PatternError reports a message_pattern that failed to compile
func (w *WaiverRule) PatternError() error {
	if w.messageRe == nil && w.messageReErr == nil && w.MessagePattern != "" {
		_ = w.Compile()
	}
	return w.messageReErr
}

// IsExpired reports whether the calendar day of now is after the expiry day
func (w *WaiverRule) IsExpired(now time.Time) bool {
	if w.Expires == nil {
		return false
	}
	return civilDate(now).After(civilDate(*w.Expires))
}

// DaysUntilExpiry returns whole days until expiry, negative once expired
func (w *WaiverRule) DaysUntilExpiry(now time.Time) (int, bool) {
	if w.Expires == nil {
		return 0, false
	}
	d := civilDate(*w.Expires).Sub(civilDate(now))
	return int(d.Hours() / 24), true
}

// AppliesToRule reports whether the waiver's rule list admits rule.
// An empty list admits every rule.
func (w *WaiverRule) AppliesToRule(rule string) bool {
	return len(w.RuleNames) == 0 || slices.Contains(w.RuleNames, rule)
}

// AppliesToSeverity reports whether the severity filter admits s.
// An empty filter admits every severity.
func (w *WaiverRule) AppliesToSeverity(s Severity) bool {
	return len(w.SeverityFilter) == 0 || slices.Contains(w.SeverityFilter, s)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WaiverUsage is the per-run usage of one waiver
type WaiverUsage struct {
	Count    int       `json:"usage_count" yaml:"usage_count"`
	LastUsed time.Time `json:"last_used,omitempty" yaml:"last_used,omitempty"`
}

// WaiverStatistics summarizes a waiver set
type WaiverStatistics struct {
	Total        int                `json:"total" yaml:"total"`
	Active       int                `json:"active" yaml:"active"`
	Inactive     int                `json:"inactive" yaml:"inactive"`
	Expired      int                `json:"expired" yaml:"expired"`
	Used         int                `json:"used" yaml:"used"`
	Unused       int                `json:"unused" yaml:"unused"`
	ExpiringSoon int                `json:"expiring_soon" yaml:"expiring_soon"`
	TotalMatches int                `json:"total_matches" yaml:"total_matches"`
	ByType       map[WaiverType]int `json:"by_type" yaml:"by_type"`
	ByRule       map[string]int     `json:"by_rule" yaml:"by_rule"`
	UsedByRule   map[string]int     `json:"used_by_rule" yaml:"used_by_rule"`
	UnusedByRule map[string]int     `json:"unused_by_rule" yaml:"unused_by_rule"`
}

// WaiverIssueKind classifies a waiver maintenance finding
type WaiverIssueKind string

const (
	IssueExpired         WaiverIssueKind = "expired"
	IssueInvalidPattern  WaiverIssueKind = "invalid_pattern"
	IssueMissingApproval WaiverIssueKind = "missing_approval"
	IssueUnused          WaiverIssueKind = "unused"
	IssueDuplicate       WaiverIssueKind = "duplicate"
)

// WaiverIssue is a maintenance finding about one waiver
type WaiverIssue struct {
	Kind     WaiverIssueKind `json:"kind" yaml:"kind"`
	WaiverID string          `json:"waiver_id" yaml:"waiver_id"`
	Source   string          `json:"source,omitempty" yaml:"source,omitempty"`
	Message  string          `json:"message" yaml:"message"`
}
