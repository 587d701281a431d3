package deadline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		text    string
		iso     string
		display string
	}{
		{
			text:    "Deadline: March 6th, 2025 for all applicants",
			iso:     "2025-03-06",
			display: "March 6th, 2025",
		},
		{
			text:    "Applications are due: January 15, 2026.",
			iso:     "2026-01-15",
			display: "January 15, 2026",
		},
		{
			text:    "Submit all materials by April 1, 2025 at the latest.",
			iso:     "2025-04-01",
			display: "April 1, 2025",
		},
		{
			text:    "The February 28, 2025 deadline is firm.",
			iso:     "2025-02-28",
			display: "February 28, 2025",
		},
		{
			text:    "Application Deadline: Friday, April 4, 2025",
			iso:     "2025-04-04",
			display: "April 4, 2025",
		},
		{
			text:    "Applications close March 15, 2026 at noon.",
			iso:     "2026-03-15",
			display: "March 15, 2026",
		},
		{
			// the labeled close date wins over an earlier bare date
			text:    "The program runs June 1, 2026 through August. Applications close July 15, 2026.",
			iso:     "2026-07-15",
			display: "July 15, 2026",
		},
		{
			// bare month-name date as last-resort fallback
			text:    "The program begins October 12, 2025 in New York.",
			iso:     "2025-10-12",
			display: "October 12, 2025",
		},
		{
			// a syntactic match that no layout parses keeps its display
			text:    "Deadline: Febtober 12, 2025",
			iso:     "",
			display: "Febtober 12, 2025",
		},
		{
			text:    "applications accepted on a rolling basis",
			iso:     "",
			display: "",
		},
		{
			text:    "",
			iso:     "",
			display: "",
		},
	}

	for _, tc := range testCases {
		iso, display := Parse(tc.text)
		require.Equal(t, tc.iso, iso, "text: %q", tc.text)
		require.Equal(t, tc.display, display, "text: %q", tc.text)
	}
}

func TestParsePriority(t *testing.T) {
	// a labeled deadline beats an earlier bare date
	iso, display := Parse("The program starts June 1, 2025. Deadline: March 6, 2025.")
	require.Equal(t, "2025-03-06", iso)
	require.Equal(t, "March 6, 2025", display)
}

func TestParseField(t *testing.T) {
	testCases := []struct {
		text    string
		iso     string
		display string
	}{
		{"Application Opens: Monday, September 1, 2025", "2025-09-01", "September 1, 2025"},
		{"September 1st, 2025", "2025-09-01", "September 1st, 2025"},
		{"03/15/2026", "2026-03-15", "03/15/2026"},
		{"2026-03-15", "2026-03-15", "2026-03-15"},
		{"open year round", "", ""},
	}

	for _, tc := range testCases {
		iso, display := ParseField(tc.text)
		require.Equal(t, tc.iso, iso, "text: %q", tc.text)
		require.Equal(t, tc.display, display, "text: %q", tc.text)
	}
}

func TestParseInput(t *testing.T) {
	iso, display := ParseInput("March 15th, 2026")
	require.Equal(t, "2026-03-15", iso)
	require.Equal(t, "March 15th, 2026", display)

	iso, display = ParseInput("3-15-2026")
	require.Equal(t, "2026-03-15", iso)

	// unparseable operator input survives as display text
	iso, display = ParseInput("rolling")
	require.Equal(t, "", iso)
	require.Equal(t, "rolling", display)

	iso, display = ParseInput("   ")
	require.Equal(t, "", iso)
	require.Equal(t, "", display)
}
