package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParseDeadline parses a deadline in the formats the extractor and submitters
// actually produce: ISO dates, common US formats, and month-name dates.
// Spanish month names show up in Texas sources often enough to handle.
// Date-only values land at end of day so a grant stays listed through its
// deadline date.
func ParseDeadline(text string) (time.Time, error) {
	text = cleanDateString(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return toEndOfDay(t), nil
	}

	formats := []string{
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"01/02/2006",
		"1/2/2006",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, text); err == nil {
			if strings.Contains(format, ":") {
				return t, nil
			}
			return toEndOfDay(t), nil
		}
	}

	if t := parseDateWithRegex(text); !t.IsZero() {
		return toEndOfDay(t), nil
	}
	if t := parseSpanishDate(text); !t.IsZero() {
		return toEndOfDay(t), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", text)
}

// toEndOfDay sets the time to 23:59:59 UTC.
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

var (
	isoDateRe   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	monthDateRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+(\d{1,2}),?\s+(20\d{2})\b`)
)

// parseDateWithRegex pulls a date out of surrounding prose.
func parseDateWithRegex(text string) time.Time {
	if matches := isoDateRe.FindStringSubmatch(text); len(matches) == 4 {
		if t, err := time.Parse("2006-01-02", matches[0]); err == nil {
			return t
		}
	}

	if matches := usDateRe.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s/%s/%s", matches[1], matches[2], matches[3])
		if t, err := time.Parse("1/2/2006", dateStr); err == nil {
			return t
		}
	}

	if matches := monthDateRe.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s %s %s", matches[1], matches[2], matches[3])
		for _, format := range []string{"January 2 2006", "Jan 2 2006"} {
			if t, err := time.Parse(format, dateStr); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

var spanishDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+(?:de|del)\s+(20\d{2})\b`)

var spanishMonths = map[string]string{
	"enero":      "January",
	"febrero":    "February",
	"marzo":      "March",
	"abril":      "April",
	"mayo":       "May",
	"junio":      "June",
	"julio":      "July",
	"agosto":     "August",
	"septiembre": "September",
	"octubre":    "October",
	"noviembre":  "November",
	"diciembre":  "December",
}

// parseSpanishDate handles "17 de junio de 2025" and the "del 2025" variant.
func parseSpanishDate(text string) time.Time {
	matches := spanishDateRe.FindStringSubmatch(text)
	if len(matches) != 4 {
		return time.Time{}
	}

	month, ok := spanishMonths[strings.ToLower(matches[2])]
	if !ok {
		return time.Time{}
	}

	dateStr := fmt.Sprintf("%s %s %s", matches[1], month, matches[3])
	t, err := time.Parse("2 January 2006", dateStr)
	if err != nil {
		return time.Time{}
	}
	return t
}

// cleanDateString strips label prefixes like "Deadline:" before parsing.
func cleanDateString(s string) string {
	prefixes := []string{
		"Closing date:", "Deadline:", "Due date:", "Expires:", "Ends:",
		"Fecha límite:", "Fecha de cierre:", "Cierre:",
	}
	sLower := strings.ToLower(s)
	for _, p := range prefixes {
		if idx := strings.Index(sLower, strings.ToLower(p)); idx != -1 {
			s = s[idx+len(p):]
			sLower = sLower[idx+len(p):]
		}
	}
	return strings.TrimSpace(s)
}
