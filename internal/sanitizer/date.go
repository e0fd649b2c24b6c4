package sanitizer

import (
	"strings"
	"time"
)

// dateLayouts are the day-granularity formats NormalizeDate accepts, per
// spec.md §4.6.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
}

// monthYearLayouts are the month-granularity formats NormalizeDate accepts;
// a match is normalized to the last day of that month, since a bare
// month-year has no day component to preserve.
var monthYearLayouts = []string{
	"01/2006",
	"2006-01",
	"January 2006",
	"Jan 2006",
}

// rangeSeparators split a date-range string into its start and end halves.
// spec.md §4.6 keeps only the end date of a range.
var rangeSeparators = []string{" to ", " - ", "–", "~"}

// NormalizeDate converts any of spec.md §4.6's accepted date shapes
// (YYYY-MM-DD, DD/MM/YYYY, DD.MM.YYYY, a month-year, or a range built from
// any of those) into an ISO-8601 date. Input that matches none of them
// returns "" rather than a guess.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	for _, sep := range rangeSeparators {
		if idx := strings.Index(s, sep); idx >= 0 {
			return NormalizeDate(s[idx+len(sep):])
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range monthYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			lastDay := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			return lastDay.Format("2006-01-02")
		}
	}
	return ""
}
