package service

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"gopkg.in/yaml.v3"
)

// OutputFormatter renders run reports and waiver listings
type OutputFormatter struct {
	// ShowDetails prints code context and suggested fixes in text output
	ShowDetails bool
	// ShowTiming prints per-rule execution time in text output
	ShowTiming bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(showDetails, showTiming bool) *OutputFormatter {
	return &OutputFormatter{ShowDetails: showDetails, ShowTiming: showTiming}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Write writes the run report in the specified format
func (f *OutputFormatter) Write(report *domain.RunReport, format domain.OutputFormat, writer io.Writer) error {
	var err error
	switch format {
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, report)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, report)
	case domain.OutputFormatText:
		err = f.writeText(report, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError("failed to write report", err)
	}
	return nil
}

// severityIndicator renders a severity as a fixed-width tag
func severityIndicator(s domain.Severity) string {
	return "[" + strings.ToUpper(string(s)) + "]"
}

func (f *OutputFormatter) writeText(report *domain.RunReport, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Consistency Check Report ===\n")
	fmt.Fprintf(writer, "Run: %s\n", report.ID)
	fmt.Fprintf(writer, "Repository: %s\n", report.RepoRoot)
	fmt.Fprintf(writer, "Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Version: %s\n\n", report.Version)

	for _, r := range report.Results {
		f.writeResultText(r, writer)
	}

	if len(report.UnknownRule) > 0 {
		fmt.Fprintf(writer, "Unknown rules: %s\n\n", strings.Join(report.UnknownRule, ", "))
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(writer, "Skipped rules: %s\n\n", strings.Join(report.Skipped, ", "))
	}

	s := report.Summary
	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Rules: %d run, %d passed, %d failed, %d errored\n", s.RulesRun, s.RulesPassed, s.RulesFailed, s.RulesErrored)
	fmt.Fprintf(writer, "  Files checked: %d\n", s.FilesChecked)
	fmt.Fprintf(writer, "  Lines checked: %d\n", s.LinesChecked)
	fmt.Fprintf(writer, "  Violations: %d", s.TotalViolations)
	if s.TotalViolations > 0 {
		var parts []string
		for _, sev := range domain.AllSeverities {
			if n := s.ViolationsBySeverity[sev]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", sev, n))
			}
		}
		fmt.Fprintf(writer, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(writer, "\n")
	fmt.Fprintf(writer, "  Warnings: %d\n", s.Warnings)
	fmt.Fprintf(writer, "  Waived: %d\n", s.Waived)
	if s.Fixed > 0 || s.FailedFixes > 0 {
		fmt.Fprintf(writer, "  Fixed: %d (failed: %d)\n", s.Fixed, s.FailedFixes)
	}
	fmt.Fprintf(writer, "  Duration: %dms\n", s.ExecutionTime.Milliseconds())

	if report.Waivers != nil {
		fmt.Fprintf(writer, "\n")
		writeWaiverStatsText(*report.Waivers, writer)
	}

	if s.Passed {
		fmt.Fprintf(writer, "\nResult: PASSED\n")
	} else {
		fmt.Fprintf(writer, "\nResult: FAILED (%s)\n", strings.Join(s.FailedRules, ", "))
	}
	return nil
}

func (f *OutputFormatter) writeResultText(r *domain.CheckResult, writer io.Writer) {
	status := "PASS"
	switch {
	case !r.Success:
		status = "ERROR"
	case !r.Passed():
		status = "FAIL"
	}
	fmt.Fprintf(writer, "%s %s", status, r.RuleName)
	if r.Success {
		fmt.Fprintf(writer, " (%d violations, %d waived)", len(r.Violations), r.WaiverCount)
	}
	if f.ShowTiming {
		fmt.Fprintf(writer, " %dms", r.ExecutionTime.Milliseconds())
	}
	fmt.Fprintf(writer, "\n")

	if !r.Success {
		fmt.Fprintf(writer, "  Error: %s\n\n", r.ErrorMessage)
		return
	}
	for _, v := range r.Violations {
		f.writeViolationText(v, writer)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(writer, "  %s:%d: %s\n", w.FilePath, w.Line, w.Message)
	}
	for _, m := range r.InfoMessages {
		fmt.Fprintf(writer, "  note: %s\n", m)
	}
	if r.Fix != nil {
		fmt.Fprintf(writer, "  Fixed %d violations", len(r.Fix.FixedViolations))
		if len(r.Fix.ModifiedFiles) > 0 {
			fmt.Fprintf(writer, " in %s", strings.Join(r.Fix.ModifiedFiles, ", "))
		}
		fmt.Fprintf(writer, "\n")
		for _, ff := range r.Fix.FailedFixes {
			fmt.Fprintf(writer, "  Fix failed for %s: %s\n", ff.FilePath, ff.Reason)
		}
	}
	fmt.Fprintf(writer, "\n")
}

func (f *OutputFormatter) writeViolationText(v domain.Violation, writer io.Writer) {
	fmt.Fprintf(writer, "  %s:%d", v.FilePath, v.Line)
	if v.Column > 0 {
		fmt.Fprintf(writer, ":%d", v.Column)
	}
	fmt.Fprintf(writer, ": %s %s\n", severityIndicator(v.Severity), v.Message)
	if !f.ShowDetails {
		return
	}

	start := v.Line - len(v.ContextBefore)
	for i, line := range v.ContextBefore {
		fmt.Fprintf(writer, "      %5d | %s\n", start+i, line)
	}
	if v.CodeSnippet != "" {
		fmt.Fprintf(writer, "    > %5d | %s\n", v.Line, v.CodeSnippet)
	}
	for i, line := range v.ContextAfter {
		fmt.Fprintf(writer, "      %5d | %s\n", v.Line+1+i, line)
	}
	if v.SuggestedFix != "" {
		fmt.Fprintf(writer, "    fix: %s\n", v.SuggestedFix)
	}
}

func writeWaiverStatsText(s domain.WaiverStatistics, writer io.Writer) {
	fmt.Fprintf(writer, "Waivers:\n")
	fmt.Fprintf(writer, "  Total: %d (active: %d, inactive: %d, expired: %d)\n", s.Total, s.Active, s.Inactive, s.Expired)
	fmt.Fprintf(writer, "  Used: %d, unused: %d, expiring soon: %d\n", s.Used, s.Unused, s.ExpiringSoon)
	fmt.Fprintf(writer, "  Matches this run: %d\n", s.TotalMatches)
}

// WaiverListing is the output of `waivers show`
type WaiverListing struct {
	GeneratedAt string                  `json:"generated_at" yaml:"generated_at"`
	Statistics  domain.WaiverStatistics `json:"statistics" yaml:"statistics"`
	Waivers     []WaiverEntry           `json:"waivers" yaml:"waivers"`
}

// WaiverEntry is one waiver with its usage and expiry status
type WaiverEntry struct {
	domain.WaiverRule `yaml:",inline"`
	Usage             domain.WaiverUsage `json:"usage" yaml:"usage"`
	Expired           bool               `json:"expired" yaml:"expired"`
	DaysUntilExpiry   *int               `json:"days_until_expiry,omitempty" yaml:"days_until_expiry,omitempty"`
}

// NewWaiverListing builds a listing of waivers ordered by source and id
func NewWaiverListing(all, selected []*domain.WaiverRule, usage waiver.UsageStore, now time.Time) *WaiverListing {
	listing := &WaiverListing{
		GeneratedAt: now.Format(time.RFC3339),
		Statistics:  waiver.Statistics(all, usage, now),
		Waivers:     make([]WaiverEntry, 0, len(selected)),
	}
	for _, w := range selected {
		e := WaiverEntry{WaiverRule: *w, Expired: w.IsExpired(now)}
		if usage != nil {
			e.Usage = usage.Usage(w)
		}
		if d, ok := w.DaysUntilExpiry(now); ok {
			e.DaysUntilExpiry = &d
		}
		listing.Waivers = append(listing.Waivers, e)
	}
	sort.SliceStable(listing.Waivers, func(i, j int) bool {
		a, b := listing.Waivers[i], listing.Waivers[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	return listing
}

// WriteWaivers writes a waiver listing in the specified format
func (f *OutputFormatter) WriteWaivers(listing *WaiverListing, format domain.OutputFormat, writer io.Writer) error {
	var err error
	switch format {
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, listing)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, listing)
	case domain.OutputFormatText:
		writeWaiverStatsText(listing.Statistics, writer)
		fmt.Fprintf(writer, "\n")
		for _, e := range listing.Waivers {
			writeWaiverText(e, writer)
		}
		if len(listing.Waivers) == 0 {
			fmt.Fprintf(writer, "No waivers found.\n")
		}
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError("failed to write waivers", err)
	}
	return nil
}

func writeWaiverText(e WaiverEntry, writer io.Writer) {
	state := "active"
	switch {
	case e.Expired:
		state = "expired"
	case !e.Active:
		state = "inactive"
	}
	fmt.Fprintf(writer, "%s [%s, %s] rules: %s\n", e.ID, e.Type, state, strings.Join(e.RuleNames, ", "))
	if e.FilePattern != "" {
		fmt.Fprintf(writer, "  File: %s", e.FilePattern)
		if e.Line != nil {
			fmt.Fprintf(writer, ":%d", *e.Line)
		}
		fmt.Fprintf(writer, "\n")
	}
	if e.MessagePattern != "" {
		fmt.Fprintf(writer, "  Message: /%s/\n", e.MessagePattern)
	}
	if e.Reason != "" {
		fmt.Fprintf(writer, "  Reason: %s\n", e.Reason)
	}
	if e.ApprovedBy != "" {
		fmt.Fprintf(writer, "  Approved by: %s\n", e.ApprovedBy)
	}
	if e.Expires != nil {
		fmt.Fprintf(writer, "  Expires: %s", waiver.FormatDate(e.Expires))
		if e.DaysUntilExpiry != nil && !e.Expired {
			fmt.Fprintf(writer, " (%d days)", *e.DaysUntilExpiry)
		}
		fmt.Fprintf(writer, "\n")
	}
	fmt.Fprintf(writer, "  Used: %d", e.Usage.Count)
	if !e.Usage.LastUsed.IsZero() {
		fmt.Fprintf(writer, " (last %s)", e.Usage.LastUsed.Format(time.RFC3339))
	}
	fmt.Fprintf(writer, "\n\n")
}

// WriteIssues writes waiver validation findings as text
func WriteIssues(issues []domain.WaiverIssue, writer io.Writer) {
	if len(issues) == 0 {
		fmt.Fprintf(writer, "All waivers are valid.\n")
		return
	}
	for _, i := range issues {
		fmt.Fprintf(writer, "%-16s %s: %s", i.Kind, i.WaiverID, i.Message)
		if i.Source != "" {
			fmt.Fprintf(writer, " (%s)", i.Source)
		}
		fmt.Fprintf(writer, "\n")
	}
}
