package domain

import "time"

// CheckResult is the outcome of one rule run
type CheckResult struct {
	RuleName string        `json:"rule_name" yaml:"rule_name"`
	Metadata *RuleMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Success      bool   `json:"success" yaml:"success"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	Violations   []Violation `json:"violations" yaml:"violations"`
	Warnings     []Violation `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	InfoMessages []string    `json:"info_messages,omitempty" yaml:"info_messages,omitempty"`

	WaivedViolations []Violation `json:"waived_violations,omitempty" yaml:"waived_violations,omitempty"`
	WaiverCount      int         `json:"waiver_count" yaml:"waiver_count"`

	FilesChecked  int           `json:"files_checked" yaml:"files_checked"`
	LinesChecked  int           `json:"lines_checked" yaml:"lines_checked"`
	ExecutionTime time.Duration `json:"execution_time_ns" yaml:"execution_time_ns"`

	Fix                *FixResult     `json:"fix,omitempty" yaml:"fix,omitempty"`
	PerformanceMetrics map[string]any `json:"performance_metrics,omitempty" yaml:"performance_metrics,omitempty"`
}

// NewCheckResult creates an empty successful result for rule
func NewCheckResult(rule string) *CheckResult {
	return &CheckResult{
		RuleName:   rule,
		Success:    true,
		Violations: []Violation{},
	}
}

// NewFailedResult creates the result recorded when a rule could not run
func NewFailedResult(rule string, err error, elapsed time.Duration) *CheckResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &CheckResult{
		RuleName:      rule,
		Success:       false,
		ErrorMessage:  msg,
		Violations:    []Violation{},
		ExecutionTime: elapsed,
	}
}

// Passed reports whether the rule ran and left no error or critical violation
func (r *CheckResult) Passed() bool {
	if !r.Success {
		return false
	}
	for _, v := range r.Violations {
		if v.Severity.IsBlocking() {
			return false
		}
	}
	return true
}

// TotalViolations counts violations and warnings
func (r *CheckResult) TotalViolations() int {
	return len(r.Violations) + len(r.Warnings)
}

// ViolationsBySeverity returns the remaining violations with severity s
func (r *CheckResult) ViolationsBySeverity(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// AddViolation appends v to the result
func (r *CheckResult) AddViolation(v Violation) {
	r.Violations = append(r.Violations, v)
}

// FailedFix records a violation a rule could not repair
type FailedFix struct {
	ViolationID string `json:"violation_id" yaml:"violation_id"`
	FilePath    string `json:"file_path" yaml:"file_path"`
	Reason      string `json:"reason" yaml:"reason"`
}

// FixResult is the outcome of a rule's fix pass
type FixResult struct {
	// FixedViolations holds the IDs of repaired violations
	FixedViolations []string    `json:"fixed_violations" yaml:"fixed_violations"`
	FailedFixes     []FailedFix `json:"failed_fixes,omitempty" yaml:"failed_fixes,omitempty"`
	ModifiedFiles   []string    `json:"modified_files,omitempty" yaml:"modified_files,omitempty"`
}

// FixedSet returns the fixed violation IDs as a set
func (f *FixResult) FixedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(f.FixedViolations))
	for _, id := range f.FixedViolations {
		set[id] = struct{}{}
	}
	return set
}
