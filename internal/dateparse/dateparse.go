// Package dateparse resolves official publication dates from the mixed date
// formats judicial sources emit. Parsing is a fallback chain; an input no rule
// matches yields ok=false, never an error.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	isoPattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashPattern    = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})$`)
	spanishPattern = regexp.MustCompile(`(\d{1,2}) de ([a-zA-ZáéíóúÁÉÍÓÚñÑüÜ]+) de (\d{4})`)
	isoPrefix      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// Parse attempts each supported format in priority order and returns the
// first calendar date that validates. Dates are constructed in UTC.
func Parse(input string) (time.Time, bool) {
	s := sanitize(input)
	if s == "" {
		return time.Time{}, false
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return makeDate(m[1], m[2], m[3])
	}
	if m := slashPattern.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	// Anchored at the end so the ISO form above is never re-matched here.
	if m := dashPattern.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	if m := spanishPattern.FindStringSubmatch(s); m != nil {
		month, ok := spanishMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return makeDateParts(m[3], int(month), m[1])
	}
	// Last resort: only strings already shaped like YYYY-MM-DD up front are
	// handed to generic parsing.
	if isoPrefix.MatchString(s) {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// sanitize trims, collapses internal whitespace, and strips characters that
// are neither printable ASCII nor part of the Spanish alphabet. Accented
// vowels and enne are preserved.
func sanitize(input string) string {
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= ' ' && r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune("áéíóúÁÉÍÓÚñÑüÜ", r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

func makeDate(year, month, day string) (time.Time, bool) {
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, false
	}
	return makeDateParts(year, m, day)
}

func makeDateParts(year string, month int, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(month), d, 0, 0, 0, 0, time.UTC)
	// Reject overflowed dates such as 31-02: time.Date normalizes them.
	if t.Day() != d || t.Month() != time.Month(month) || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}
