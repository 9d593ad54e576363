package waiver

import (
	"sort"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
)

// ExpiringSoonDays is the default horizon for "expiring soon"
const ExpiringSoonDays = 14

// Statistics summarizes waivers and their recorded usage at time now.
// A nil usage store counts every waiver as unused.
func Statistics(waivers []*domain.WaiverRule, usage UsageStore, now time.Time) domain.WaiverStatistics {
	st := domain.WaiverStatistics{
		Total:        len(waivers),
		ByType:       map[domain.WaiverType]int{},
		ByRule:       map[string]int{},
		UsedByRule:   map[string]int{},
		UnusedByRule: map[string]int{},
	}
	for _, w := range waivers {
		expired := w.IsExpired(now)
		switch {
		case expired:
			st.Expired++
		case w.Active:
			st.Active++
		}
		if !w.Active {
			st.Inactive++
		}
		if days, ok := w.DaysUntilExpiry(now); ok && days > 0 && days <= ExpiringSoonDays {
			st.ExpiringSoon++
		}

		st.ByType[w.Type]++
		for _, r := range w.RuleNames {
			st.ByRule[r]++
		}

		u := usageOf(usage, w)
		st.TotalMatches += u.Count
		if u.Count > 0 {
			st.Used++
			for _, r := range w.RuleNames {
				st.UsedByRule[r]++
			}
		} else {
			st.Unused++
			for _, r := range w.RuleNames {
				st.UnusedByRule[r]++
			}
		}
	}
	return st
}

// Expired returns the waivers expired at now
func Expired(waivers []*domain.WaiverRule, now time.Time) []*domain.WaiverRule {
	var out []*domain.WaiverRule
	for _, w := range waivers {
		if w.IsExpired(now) {
			out = append(out, w)
		}
	}
	return out
}

// Unused returns the waivers that have not matched anything
func Unused(waivers []*domain.WaiverRule, usage UsageStore) []*domain.WaiverRule {
	var out []*domain.WaiverRule
	for _, w := range waivers {
		if usageOf(usage, w).Count == 0 {
			out = append(out, w)
		}
	}
	return out
}

// Expiring returns unexpired waivers expiring within days, soonest first
func Expiring(waivers []*domain.WaiverRule, now time.Time, days int) []*domain.WaiverRule {
	var out []*domain.WaiverRule
	for _, w := range waivers {
		if left, ok := w.DaysUntilExpiry(now); ok && left > 0 && left <= days {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].DaysUntilExpiry(now)
		b, _ := out[j].DaysUntilExpiry(now)
		return a < b
	})
	return out
}

// ForRule returns the waivers whose rule list names rule
func ForRule(waivers []*domain.WaiverRule, rule string) []*domain.WaiverRule {
	var out []*domain.WaiverRule
	for _, w := range waivers {
		for _, r := range w.RuleNames {
			if r == rule {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

func usageOf(usage UsageStore, w *domain.WaiverRule) domain.WaiverUsage {
	if usage == nil {
		return domain.WaiverUsage{}
	}
	return usage.Usage(w)
}
