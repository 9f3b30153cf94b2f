package normalization

import (
	"strings"
	"time"
	"unicode"
)

// ParseInputString trims and collapses internal whitespace.
func ParseInputString(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

// DigitsOnly strips every non-digit rune. Returns "" when nothing remains.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// ParseDate accepts ISO (YYYY-MM-DD), DD/MM/YYYY or DD-MM-YYYY. A trailing
// time component is stripped first.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	// "2001-02-03 00:00:00" or "2001-02-03T00:00:00"
	if i := strings.IndexAny(raw, " T"); i > 0 {
		raw = raw[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// YearsBetween is the age in whole years of someone born at birth, measured
// at ref.
func YearsBetween(birth, ref time.Time) int {
	years := ref.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(ref) {
		years--
	}
	return years
}
