// Package waiver loads suppression policies and decides which violations
// they exempt.
package waiver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/logging"
	"github.com/ludo-technologies/ccheck/internal/pathmatch"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Policy file sections
const (
	SectionLine      = "line_waivers"
	SectionPattern   = "pattern_waivers"
	SectionRule      = "rule_waivers"
	SectionBulk      = "bulk_waivers"
	SectionTemporary = "temporary_waivers"
	SectionFile      = "file_waivers"
)

// sectionOrder fixes load order within a file, which is match order
var sectionOrder = []string{SectionLine, SectionPattern, SectionRule, SectionBulk, SectionTemporary, SectionFile}

var idPrefix = map[string]string{
	SectionLine:      "line",
	SectionPattern:   "pattern",
	SectionRule:      "rule",
	SectionBulk:      "bulk",
	SectionTemporary: "temporary",
	SectionFile:      "file",
}

// PolicyFileName returns the waiver file name for rule
func PolicyFileName(rule string) string {
	return rule + "_waivers.yml"
}

// PolicyPath returns the policy file of rule under rulesDir, preferring an
// existing .yml, then .yaml, then the .yml default
func PolicyPath(rulesDir, rule string) string {
	base := filepath.Join(rulesDir, rule)
	yml := filepath.Join(base, PolicyFileName(rule))
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	alt := filepath.Join(base, rule+"_waivers.yaml")
	if _, err := os.Stat(alt); err == nil {
		return alt
	}
	return yml
}

// Loader reads per-rule policy files
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader that reports skipped files and entries to logger
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logging.OrDefault(logger)}
}

// LoadDir loads the policy file of every rule subdirectory of rulesDir, in
// directory name order. Unreadable or malformed files are logged and skipped.
func (l *Loader) LoadDir(rulesDir string) ([]*domain.WaiverRule, error) {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil, domain.NewWaiverError("cannot read rules directory "+rulesDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !skipDir(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var all []*domain.WaiverRule
	for _, rule := range names {
		path := PolicyPath(rulesDir, rule)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		waivers, err := l.LoadFile(path, rule)
		if err != nil {
			l.logger.Warn("skipping waiver file", "rule", rule, "file", path, "error", err)
			continue
		}
		l.logger.Debug("loaded waivers", "rule", rule, "count", len(waivers))
		all = append(all, waivers...)
	}
	return all, nil
}

// LoadFile loads one policy file owned by rule
func (l *Loader) LoadFile(path, rule string) ([]*domain.WaiverRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewWaiverError("cannot read "+path, err)
	}
	waivers, problems, err := Parse(data, rule, path)
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		l.logger.Warn("skipping waiver entry", "rule", rule, "file", path, "error", p)
	}
	return waivers, nil
}

// Parse decodes a policy document. A document that is not valid YAML is an
// error; individual malformed entries are returned as problems and skipped.
func Parse(data []byte, rule, source string) ([]*domain.WaiverRule, []error, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, domain.NewWaiverError("malformed policy file "+source, err)
	}

	var (
		waivers  []*domain.WaiverRule
		problems []error
	)
	for _, section := range sectionOrder {
		raw, ok := doc[section]
		if !ok || raw == nil {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			problems = append(problems, fmt.Errorf("section %s is not a list", section))
			continue
		}
		for i, item := range items {
			entry, ok := toEntry(item)
			if !ok {
				problems = append(problems, fmt.Errorf("%s[%d] is not a mapping", section, i))
				continue
			}
			pe, err := parseEntry(section, entry, rule, len(waivers))
			if err != nil {
				problems = append(problems, fmt.Errorf("%s[%d]: %w", section, i, err))
				continue
			}
			problems = append(problems, pe.dateProblems...)
			pe.rule.Source = source
			if err := pe.rule.Compile(); err != nil {
				// Kept so validation can report it; an invalid pattern never matches
				problems = append(problems, err)
			}
			waivers = append(waivers, pe.rule)
		}
	}
	return waivers, problems, nil
}

type entry map[string]any

type parsed struct {
	rule         *domain.WaiverRule
	dateProblems []error
}

func toEntry(item any) (entry, bool) {
	switch m := item.(type) {
	case map[string]any:
		return entry(m), true
	case map[any]any:
		out := make(entry, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

func parseEntry(section string, e entry, rule string, index int) (*parsed, error) {
	w := &domain.WaiverRule{
		ID:             e.str("id"),
		Reason:         e.str("reason"),
		ApprovedBy:     e.str("approved_by"),
		IssueReference: e.str("issue_reference"),
		Active:         e.boolOr("active", true),
	}
	if w.ID == "" {
		w.ID = fmt.Sprintf("%s_%s_%d", idPrefix[section], rule, index)
	}
	p := &parsed{rule: w}

	var err error
	switch section {
	case SectionLine:
		err = parseLine(w, e, rule)
	case SectionPattern, SectionTemporary:
		w.Type = domain.WaiverPatternBased
		if section == SectionTemporary {
			w.Type = domain.WaiverTemporary
			w.LifecycleHint = domain.LifecycleTemporary
		}
		w.Pattern = e.str("pattern")
		w.FilePattern = e.str("file_pattern", "file")
		w.MessagePattern = e.str("message_pattern")
		w.RuleNames = withOwner(e.strList("rules"), rule)
		w.SeverityFilter, err = e.severities("severity_filter")
	case SectionRule:
		w.Type = domain.WaiverRuleBased
		names := e.strList("rules")
		if r := e.str("rule"); r != "" {
			names = []string{r}
		}
		w.RuleNames = withOwner(names, rule)
		w.FilePattern = e.str("scope", "file_pattern")
		w.ParameterOverrides = e.mapping("parameter_overrides")
	case SectionBulk:
		w.Type = domain.WaiverBulk
		w.FilePattern = e.str("pattern", "file_pattern")
		if e.str("rules") == "*" {
			w.RuleNames = []string{rule}
		} else {
			w.RuleNames = withOwner(e.strList("rules"), rule)
		}
		if w.FilePattern == "" {
			err = errors.New("bulk waiver requires a file pattern")
		}
	case SectionFile:
		// Legacy whole-file suppression for the owning rule
		w.Type = domain.WaiverRuleBased
		w.FilePattern = e.str("pattern", "file_pattern")
		w.RuleNames = []string{rule}
		if w.FilePattern == "" {
			err = errors.New("file waiver requires a file pattern")
		}
	}
	if err != nil {
		return nil, err
	}
	if w.FilePattern != "" {
		if err := pathmatch.Validate(w.FilePattern); err != nil {
			return nil, fmt.Errorf("waiver %s: %w", w.ID, err)
		}
	}

	if w.CreatedDate, err = ParseDate(e["created_date"]); err != nil {
		p.dateProblems = append(p.dateProblems, fmt.Errorf("waiver %s created_date: %w", w.ID, err))
	}
	if w.Expires, err = ParseDate(e["expires"]); err != nil {
		p.dateProblems = append(p.dateProblems, fmt.Errorf("waiver %s expires: %w", w.ID, err))
	}
	return p, nil
}

func parseLine(w *domain.WaiverRule, e entry, rule string) error {
	w.Type = domain.WaiverLineSpecific
	w.CodeContent = e.str("code_content")
	w.MessagePattern = e.str("message_pattern")
	w.RuleNames = withOwner(e.strList("rules"), rule)

	if vl := e.str("violation_line"); vl != "" {
		file, line, col, msg, ok := splitViolationLine(vl)
		if !ok {
			w.Pattern = vl
			return nil
		}
		w.FilePattern = file
		w.Line, w.Column = line, col
		w.Pattern = strings.TrimPrefix(msg, rule+" ")
		return nil
	}

	w.FilePattern = e.str("file_pattern", "file")
	w.Pattern = e.str("pattern")
	var err error
	if w.Line, err = e.intPtr("line_number", "line"); err != nil {
		return err
	}
	if w.Column, err = e.intPtr("column"); err != nil {
		return err
	}
	return nil
}

// splitViolationLine parses "file:line:col: message"
func splitViolationLine(s string) (file string, line, col *int, msg string, ok bool) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 4 {
		return "", nil, nil, "", false
	}
	if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
		line = &n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
		col = &n
	}
	return parts[0], line, col, strings.TrimSpace(parts[3]), true
}

// withOwner returns names with the owning rule present. An empty list
// becomes just the owner.
func withOwner(names []string, owner string) []string {
	if slices.Contains(names, owner) {
		return names
	}
	return append(names, owner)
}

func (e entry) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := e[k]; ok && v != nil {
			if s := strings.TrimSpace(cast.ToString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func (e entry) boolOr(key string, def bool) bool {
	v, ok := e[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func (e entry) intPtr(keys ...string) (*int, error) {
	for _, k := range keys {
		v, ok := e[k]
		if !ok || v == nil {
			continue
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %v", k, v)
		}
		return &n, nil
	}
	return nil, nil
}

func (e entry) strList(key string) []string {
	v, ok := e[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil
	}
	return list
}

func (e entry) mapping(key string) map[string]any {
	v, ok := e[key]
	if !ok || v == nil {
		return nil
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil
	}
	return m
}

func (e entry) severities(key string) ([]domain.Severity, error) {
	var out []domain.Severity
	for _, s := range e.strList(key) {
		sev, err := domain.ParseSeverity(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sev)
	}
	return out, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
