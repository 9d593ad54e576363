package waiver

import (
	"strings"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/pathmatch"
)

// Matches reports whether w exempts v found in filePath at time now
func Matches(w *domain.WaiverRule, v domain.Violation, filePath string, now time.Time) bool {
	if !w.Active || w.IsExpired(now) {
		return false
	}
	if !w.AppliesToRule(v.RuleName) {
		return false
	}
	if !w.AppliesToSeverity(v.Severity) {
		return false
	}

	switch w.Type {
	case domain.WaiverLineSpecific:
		return matchLine(w, v, filePath)
	case domain.WaiverPatternBased, domain.WaiverTemporary:
		return matchPattern(w, v, filePath)
	case domain.WaiverRuleBased:
		return fileMatches(w, filePath)
	case domain.WaiverBulk:
		return w.FilePattern != "" && pathmatch.Match(w.FilePattern, filePath)
	}
	return false
}

// fileMatches treats an absent file pattern as "any file"
func fileMatches(w *domain.WaiverRule, filePath string) bool {
	return w.FilePattern == "" || pathmatch.Match(w.FilePattern, filePath)
}

func matchLine(w *domain.WaiverRule, v domain.Violation, filePath string) bool {
	if !fileMatches(w, filePath) {
		return false
	}
	if w.Line != nil && v.Line != *w.Line {
		return false
	}
	if w.Column != nil && v.Column != *w.Column {
		return false
	}
	if w.CodeContent != "" && strings.TrimSpace(w.CodeContent) != strings.TrimSpace(v.CodeSnippet) {
		return false
	}
	if w.MessagePattern != "" {
		re := w.MessageRegexp()
		return re != nil && re.MatchString(v.Message)
	}
	if w.Pattern != "" && !strings.Contains(v.Message, w.Pattern) {
		return false
	}
	return true
}

func matchPattern(w *domain.WaiverRule, v domain.Violation, filePath string) bool {
	if !fileMatches(w, filePath) {
		return false
	}
	if w.Pattern != "" && (strings.Contains(v.Message, w.Pattern) || strings.Contains(v.CodeSnippet, w.Pattern)) {
		return true
	}
	if w.MessagePattern != "" {
		re := w.MessageRegexp()
		return re != nil && re.MatchString(v.Message)
	}
	return false
}
