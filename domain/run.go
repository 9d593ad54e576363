package domain

import "time"

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat validates a format name
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return OutputFormat(s), nil
	}
	return "", NewUnsupportedFormatError(s)
}

// RunSummary is the run-level rollup of all rule results
type RunSummary struct {
	RulesRun     int `json:"rules_run" yaml:"rules_run"`
	RulesPassed  int `json:"rules_passed" yaml:"rules_passed"`
	RulesFailed  int `json:"rules_failed" yaml:"rules_failed"`
	RulesErrored int `json:"rules_errored" yaml:"rules_errored"`

	FilesChecked  int           `json:"files_checked" yaml:"files_checked"`
	LinesChecked  int           `json:"lines_checked" yaml:"lines_checked"`
	ExecutionTime time.Duration `json:"execution_time_ns" yaml:"execution_time_ns"`

	TotalViolations      int              `json:"total_violations" yaml:"total_violations"`
	ViolationsBySeverity map[Severity]int `json:"violations_by_severity" yaml:"violations_by_severity"`
	Warnings             int              `json:"warnings" yaml:"warnings"`
	Waived               int              `json:"waived" yaml:"waived"`
	Fixed                int              `json:"fixed" yaml:"fixed"`
	FailedFixes          int              `json:"failed_fixes" yaml:"failed_fixes"`

	FailedRules []string `json:"failed_rules,omitempty" yaml:"failed_rules,omitempty"`
	Passed      bool     `json:"passed" yaml:"passed"`
}

// RunReport is everything a run produces for reporting
type RunReport struct {
	ID          string            `json:"id" yaml:"id"`
	Version     string            `json:"version" yaml:"version"`
	RepoRoot    string            `json:"repo_root" yaml:"repo_root"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	Results     []*CheckResult    `json:"results" yaml:"results"`
	Summary     RunSummary        `json:"summary" yaml:"summary"`
	Waivers     *WaiverStatistics `json:"waivers,omitempty" yaml:"waivers,omitempty"`
	Skipped     []string          `json:"skipped_rules,omitempty" yaml:"skipped_rules,omitempty"`
	UnknownRule []string          `json:"unknown_rules,omitempty" yaml:"unknown_rules,omitempty"`
}
