// Package dates converts raw statement date strings into the canonical
// YYYY-MM-DD calendar-date representation.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// Two-digit years pivot at 50: 00-49 map to 2000-2049, 50-99 to 1950-1999.
const yearPivot = 50

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// isoPrefixPattern matches an ISO date at the start of a longer string,
// e.g. "2024-01-15T00:00:00Z".
var isoPrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// monPattern matches DD-Mon-YY and DD-Mon-YYYY forms like "16-Feb-26".
var monPattern = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2}|\d{4})$`)

// fallbackLayouts are the general-purpose layouts tried by auto-detect after
// the two special-cased patterns. The set is fixed so behavior does not
// depend on an unspecified generic parser. Calendar fields are taken from
// the parsed value as written; no timezone conversion is applied.
var fallbackLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822,
	time.ANSIC,
}

// Normalize converts a raw date string plus a format specifier into the
// canonical YYYY-MM-DD form. It returns "" for anything it cannot parse:
// explicit formats are strict (the user declared exactly what to expect),
// and auto-detect fails closed rather than guessing between DD/MM and MM/DD.
func Normalize(raw string, format domain.DateFormat) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if format == domain.DateFormatAuto {
		return autoDetect(raw)
	}

	switch format {
	case domain.DateFormatDMonY2, domain.DateFormatDMonY4:
		return parseMonForm(raw)
	default:
		return parseTokenized(raw, format)
	}
}

// autoDetect tries the unambiguous forms in order, first match wins.
func autoDetect(raw string) string {
	// ISO prefix is taken verbatim. Reparsing through a generic date parser
	// would reintroduce timezone shifts for embedded times near midnight.
	if iso := isoPrefixPattern.FindString(raw); iso != "" {
		return iso
	}

	if out := parseMonForm(raw); out != "" {
		return out
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// parseTokenized handles the numeric token templates (DD/MM/YYYY etc.).
// The raw string must use the template's separator and match its token
// count; every token must be numeric and form a real calendar date.
func parseTokenized(raw string, format domain.DateFormat) string {
	sep := "-"
	if strings.Contains(string(format), "/") {
		sep = "/"
	}

	tokens := strings.Split(string(format), sep)
	parts := strings.Split(raw, sep)
	if len(parts) != len(tokens) {
		return ""
	}

	var year, month, day int
	for i, tok := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 {
			return ""
		}
		switch tok {
		case "DD":
			day = v
		case "MM":
			month = v
		case "YYYY":
			if len(strings.TrimSpace(parts[i])) != 4 {
				return ""
			}
			year = v
		case "YY":
			if len(strings.TrimSpace(parts[i])) != 2 {
				return ""
			}
			year = expandYear(v)
		default:
			return ""
		}
	}

	return formatDate(year, month, day)
}

// parseMonForm handles DD-Mon-YY and DD-Mon-YYYY, with a case-insensitive
// three-letter month abbreviation.
func parseMonForm(raw string) string {
	m := monPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}

	day, _ := strconv.Atoi(m[1])
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return ""
	}

	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year = expandYear(year)
	}

	return formatDate(year, month, day)
}

func expandYear(yy int) int {
	if yy < yearPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

// formatDate validates the field triple against the real calendar and
// renders it. time.Date normalizes overflow (Feb 31 becomes Mar 3), so the
// round-trip comparison rejects impossible dates instead of shifting them.
func formatDate(year, month, day int) string {
	if year == 0 || month == 0 || day == 0 {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return ""
	}
	return t.Format("2006-01-02")
}
