package waiver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"gopkg.in/yaml.v3"
)

// DefaultExpiryDays is the lifetime of a waiver created from a violation
const DefaultExpiryDays = 90

// policyEntry is the on-disk shape of one waiver
type policyEntry struct {
	ID                 string         `yaml:"id"`
	File               string         `yaml:"file_pattern,omitempty"`
	Scope              string         `yaml:"scope,omitempty"`
	LineNumber         *int           `yaml:"line_number,omitempty"`
	Column             *int           `yaml:"column,omitempty"`
	Pattern            string         `yaml:"pattern,omitempty"`
	CodeContent        string         `yaml:"code_content,omitempty"`
	MessagePattern     string         `yaml:"message_pattern,omitempty"`
	SeverityFilter     []string       `yaml:"severity_filter,omitempty"`
	Rules              any            `yaml:"rules,omitempty"`
	ParameterOverrides map[string]any `yaml:"parameter_overrides,omitempty"`
	Reason             string         `yaml:"reason"`
	ApprovedBy         string         `yaml:"approved_by"`
	CreatedDate        string         `yaml:"created_date,omitempty"`
	Expires            string         `yaml:"expires,omitempty"`
	IssueReference     string         `yaml:"issue_reference,omitempty"`
	Active             bool           `yaml:"active"`
}

type policyDocument struct {
	LineWaivers      []policyEntry `yaml:"line_waivers,omitempty"`
	PatternWaivers   []policyEntry `yaml:"pattern_waivers,omitempty"`
	RuleWaivers      []policyEntry `yaml:"rule_waivers,omitempty"`
	BulkWaivers      []policyEntry `yaml:"bulk_waivers,omitempty"`
	TemporaryWaivers []policyEntry `yaml:"temporary_waivers,omitempty"`
}

// Marshal renders waivers owned by rule as a policy document grouped by type
func Marshal(rule string, waivers []*domain.WaiverRule) ([]byte, error) {
	var doc policyDocument
	for _, w := range waivers {
		e := policyEntry{
			ID:             w.ID,
			Reason:         w.Reason,
			ApprovedBy:     w.ApprovedBy,
			CreatedDate:    FormatDate(w.CreatedDate),
			Expires:        FormatDate(w.Expires),
			IssueReference: w.IssueReference,
			Active:         w.Active,
			Rules:          extraRules(w.RuleNames, rule),
		}
		switch w.Type {
		case domain.WaiverLineSpecific:
			e.File = w.FilePattern
			e.LineNumber = w.Line
			e.Column = w.Column
			e.Pattern = w.Pattern
			e.CodeContent = w.CodeContent
			e.MessagePattern = w.MessagePattern
			doc.LineWaivers = append(doc.LineWaivers, e)
		case domain.WaiverPatternBased, domain.WaiverTemporary:
			e.File = w.FilePattern
			e.Pattern = w.Pattern
			e.MessagePattern = w.MessagePattern
			for _, s := range w.SeverityFilter {
				e.SeverityFilter = append(e.SeverityFilter, string(s))
			}
			if w.Type == domain.WaiverTemporary {
				doc.TemporaryWaivers = append(doc.TemporaryWaivers, e)
			} else {
				doc.PatternWaivers = append(doc.PatternWaivers, e)
			}
		case domain.WaiverRuleBased:
			e.Scope = w.FilePattern
			e.ParameterOverrides = w.ParameterOverrides
			doc.RuleWaivers = append(doc.RuleWaivers, e)
		case domain.WaiverBulk:
			e.Pattern = w.FilePattern
			doc.BulkWaivers = append(doc.BulkWaivers, e)
		default:
			return nil, domain.NewWaiverError(fmt.Sprintf("waiver %s has unknown type %q", w.ID, w.Type), nil)
		}
	}
	return yaml.Marshal(&doc)
}

// extraRules returns the rule list to persist. Lists naming only the owner
// are omitted since loading adds the owner back.
func extraRules(names []string, owner string) any {
	if len(names) == 0 || len(names) == 1 && names[0] == owner {
		return nil
	}
	return names
}

// SaveRuleWaivers writes waivers to rule's policy file under rulesDir. The
// rule directory must already exist.
func SaveRuleWaivers(rulesDir, rule string, waivers []*domain.WaiverRule) (string, error) {
	dir := filepath.Join(rulesDir, rule)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", domain.NewWaiverError("rule directory not found: "+dir, err)
	}
	data, err := Marshal(rule, waivers)
	if err != nil {
		return "", err
	}
	path := PolicyPath(rulesDir, rule)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", domain.NewWaiverError("cannot write "+path, err)
	}
	return path, nil
}

// FromViolation builds a line waiver exempting exactly v. expiresDays <= 0
// means no expiry.
func FromViolation(v domain.Violation, reason, approvedBy string, expiresDays int, now time.Time) *domain.WaiverRule {
	today := dateOf(now)
	line, col := v.Line, v.Column
	w := &domain.WaiverRule{
		ID:          fmt.Sprintf("auto_%s_%s", v.RuleName, today.Format("20060102")),
		Type:        domain.WaiverLineSpecific,
		Pattern:     v.Message,
		RuleNames:   []string{v.RuleName},
		FilePattern: v.FilePath,
		Line:        &line,
		Column:      &col,
		CodeContent: v.CodeSnippet,
		Reason:      reason,
		ApprovedBy:  approvedBy,
		CreatedDate: &today,
		Active:      true,
	}
	if expiresDays > 0 {
		exp := today.AddDate(0, 0, expiresDays)
		w.Expires = &exp
	}
	return w
}

// UniqueID returns id, suffixed if needed so it does not clash with existing
func UniqueID(id string, existing []*domain.WaiverRule) string {
	taken := make(map[string]bool, len(existing))
	for _, w := range existing {
		taken[w.ID] = true
	}
	if !taken[id] {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

type exportEntry struct {
	ID          string   `yaml:"id"`
	Type        string   `yaml:"type"`
	Pattern     string   `yaml:"pattern,omitempty"`
	RuleNames   []string `yaml:"rule_names"`
	FilePattern string   `yaml:"file_pattern,omitempty"`
	Reason      string   `yaml:"reason"`
	ApprovedBy  string   `yaml:"approved_by"`
	CreatedDate string   `yaml:"created_date,omitempty"`
	Expires     string   `yaml:"expires,omitempty"`
	Source      string   `yaml:"source,omitempty"`
	UsageCount  int      `yaml:"usage_count"`
}

type exportDocument struct {
	Metadata struct {
		ExportedAt         string `yaml:"exported_at"`
		TotalUnusedWaivers int    `yaml:"total_unused_waivers"`
		Note               string `yaml:"note"`
	} `yaml:"metadata"`
	UnusedWaivers []exportEntry `yaml:"unused_waivers"`
}

// ExportUnused writes every waiver with no recorded usage to path as YAML
// and returns how many were exported
func ExportUnused(path string, waivers []*domain.WaiverRule, usage UsageStore, now time.Time) (int, error) {
	unused := Unused(waivers, usage)

	var doc exportDocument
	doc.Metadata.ExportedAt = now.Format(time.RFC3339)
	doc.Metadata.TotalUnusedWaivers = len(unused)
	doc.Metadata.Note = "These waivers have never been used. Review before deletion."
	doc.UnusedWaivers = make([]exportEntry, 0, len(unused))
	for _, w := range unused {
		doc.UnusedWaivers = append(doc.UnusedWaivers, exportEntry{
			ID:          w.ID,
			Type:        string(w.Type),
			Pattern:     w.Pattern,
			RuleNames:   w.RuleNames,
			FilePattern: w.FilePattern,
			Reason:      w.Reason,
			ApprovedBy:  w.ApprovedBy,
			CreatedDate: FormatDate(w.CreatedDate),
			Expires:     FormatDate(w.Expires),
			Source:      w.Source,
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return 0, domain.NewOutputError("cannot encode unused waivers", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, domain.NewOutputError("cannot write "+path, err)
	}
	return len(unused), nil
}
