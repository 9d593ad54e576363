package waiver

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/pathmatch"
)

// Validate reports maintenance issues in waivers. Unused waivers are only
// reported when usage is non-nil, since usage is meaningless before a run.
func Validate(waivers []*domain.WaiverRule, usage UsageStore, now time.Time) []domain.WaiverIssue {
	var issues []domain.WaiverIssue
	seen := make(map[string]string)

	add := func(kind domain.WaiverIssueKind, w *domain.WaiverRule, format string, args ...any) {
		issues = append(issues, domain.WaiverIssue{
			Kind:     kind,
			WaiverID: w.ID,
			Source:   w.Source,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, w := range waivers {
		if w.IsExpired(now) {
			add(domain.IssueExpired, w, "waiver %s expired on %s", w.ID, FormatDate(w.Expires))
		}
		if strings.TrimSpace(w.ApprovedBy) == "" {
			add(domain.IssueMissingApproval, w, "waiver %s is missing approval", w.ID)
		}
		if usage != nil && usage.Usage(w).Count == 0 {
			add(domain.IssueUnused, w, "waiver %s was never used", w.ID)
		}
		if err := w.PatternError(); err != nil {
			add(domain.IssueInvalidPattern, w, "waiver %s has an invalid regex: %v", w.ID, err)
		}
		if w.FilePattern != "" {
			if err := pathmatch.Validate(w.FilePattern); err != nil {
				add(domain.IssueInvalidPattern, w, "waiver %s has an invalid file glob: %v", w.ID, err)
			}
		}

		key := duplicateKey(w)
		if first, ok := seen[key]; ok {
			add(domain.IssueDuplicate, w, "waiver %s duplicates %s", w.ID, first)
		} else {
			seen[key] = w.ID
		}
	}
	return issues
}

// duplicateKey identifies waivers that would match the same violations
func duplicateKey(w *domain.WaiverRule) string {
	line := "-"
	if w.Line != nil {
		line = fmt.Sprint(*w.Line)
	}
	rules := slices.Clone(w.RuleNames)
	slices.Sort(rules)
	return strings.Join([]string{string(w.Type), w.Pattern, w.FilePattern, line, strings.Join(rules, ",")}, "\x00")
}
