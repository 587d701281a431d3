// Package deadline extracts application dates from free text. Pages
// bury deadlines inside paragraphs of unrelated content, so extraction
// is a prioritized pattern search rather than a general date parser.
// Non-match is a normal outcome meaning "unknown deadline"; nothing in
// this package returns an error.
package deadline

import (
	"regexp"
	"strings"
	"time"
)

const weekdays = `(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)`
const datePhrase = `[A-Za-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`
const monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December)`

// evaluated in priority order, first match wins. labeled mentions beat
// contextual ones, and a bare month-day-year is only a fallback since
// it happily matches program start dates and event announcements.
var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:deadline|due)[:\s]+(?:` + weekdays + `,?\s+)?(` + datePhrase + `)`),
	regexp.MustCompile(`(?i)applications?\s+(?:due|close)[:\s]*(` + datePhrase + `)`),
	regexp.MustCompile(`(?i)(?:by|before)\s+(` + datePhrase + `)`),
	regexp.MustCompile(`(?i)(` + datePhrase + `)\s+deadline`),
	regexp.MustCompile(`(?i)` + weekdays + `,?\s+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)(` + monthNames + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})`),
}

// simpler set for text already known to hold a single date, like a
// labeled "Application Opens" field.
var fieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)` + weekdays + `,?\s+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)(` + datePhrase + `)`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
}

var ordinalSuffix = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)`)

var layouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"1/2/2006",
	"2006-01-02",
	"1-2-2006",
}

func toISO(display string) string {
	clean := ordinalSuffix.ReplaceAllString(display, "$1")
	for _, layout := range layouts {
		dt, err := time.Parse(layout, clean)
		if err == nil {
			return dt.Format("2006-01-02")
		}
	}
	return ""
}

func search(text string, patterns []*regexp.Regexp) (string, string) {
	for _, p := range patterns {
		match := p.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		display := strings.TrimSpace(match[1])
		// the display phrase is shown to operators verbatim, it is
		// kept even when no layout can turn it into an ISO date
		return toISO(display), display
	}
	return "", ""
}

// Parse locates one deadline expression in arbitrary text. It returns
// the ISO date ("" when unparseable or absent) and the raw matched
// phrase ("" only when no pattern matched at all).
func Parse(text string) (iso, display string) {
	return search(text, deadlinePatterns)
}

// ParseField extracts a date from text known to contain one, such as a
// labeled date field on a detail page.
func ParseField(text string) (iso, display string) {
	return search(text, fieldPatterns)
}

// ParseInput parses an operator-typed date against the known layouts
// only. Unparseable input is preserved as display text so manual
// entries like "rolling" survive untouched.
func ParseInput(text string) (iso, display string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	return toISO(text), text
}
