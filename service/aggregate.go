package service

import (
	"sort"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

// Aggregate rolls results up into a run summary. A rule that ran but left
// blocking violations counts as failed; a rule that could not run counts as
// errored. The run passes only when every rule passes.
func Aggregate(results []*domain.CheckResult, elapsed time.Duration) domain.RunSummary {
	s := domain.RunSummary{
		ExecutionTime:        elapsed,
		ViolationsBySeverity: map[domain.Severity]int{},
	}
	for _, sev := range domain.AllSeverities {
		s.ViolationsBySeverity[sev] = 0
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		s.RulesRun++
		switch {
		case !r.Success:
			s.RulesErrored++
			s.FailedRules = append(s.FailedRules, r.RuleName)
		case r.Passed():
			s.RulesPassed++
		default:
			s.RulesFailed++
			s.FailedRules = append(s.FailedRules, r.RuleName)
		}

		s.FilesChecked += r.FilesChecked
		s.LinesChecked += r.LinesChecked
		s.TotalViolations += len(r.Violations)
		for _, v := range r.Violations {
			s.ViolationsBySeverity[v.Severity]++
		}
		s.Warnings += len(r.Warnings)
		s.Waived += len(r.WaivedViolations)
		if r.Fix != nil {
			s.Fixed += len(r.Fix.FixedViolations)
			s.FailedFixes += len(r.Fix.FailedFixes)
		}
	}
	sort.Strings(s.FailedRules)
	s.Passed = s.RulesRun == s.RulesPassed
	return s
}

// uniquePaths returns the distinct file paths of violations in sorted order
func uniquePaths(violations []domain.Violation) []string {
	seen := make(map[string]struct{}, len(violations))
	var paths []string
	for _, v := range violations {
		if v.FilePath == "" {
			continue
		}
		if _, ok := seen[v.FilePath]; ok {
			continue
		}
		seen[v.FilePath] = struct{}{}
		paths = append(paths, v.FilePath)
	}
	sort.Strings(paths)
	return paths
}
