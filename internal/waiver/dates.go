package waiver

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout dates are written back in
const DateLayout = "2006-01-02"

// dateLayouts are tried in order; month-first wins over day-first when both fit
var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-1-2",
}

// ParseDate accepts a YAML scalar (string or decoded timestamp) and returns
// the calendar date it names. Empty values return nil without error.
func ParseDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := dateOf(v)
		return &d, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		d := dateOf(*v)
		return &d, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				d := dateOf(t)
				return &d, nil
			}
		}
		return nil, fmt.Errorf("unrecognized date %q", s)
	}
	return nil, fmt.Errorf("unsupported date value %v (%T)", value, value)
}

// FormatDate renders a date for a policy file
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
