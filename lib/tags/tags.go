// Package tags classifies opportunity text into level, citizenship,
// type, field and funding tags. Rules live in a declarative table of
// (category, tag, predicate) rows evaluated against lowercased text,
// which keeps the citizenship exclusion handling auditable instead of
// buried in control flow.
package tags

import (
	"regexp"
	"strings"

	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/textutil"
)

type rule struct {
	category string
	tag      string
	match    func(t string) bool
}

// Ruleset is an ordered rule table. Row order only matters where a
// predicate depends on an exclusion being checked first; those
// dependencies are encoded inside the predicates themselves.
type Ruleset struct {
	rules      []rule
	fundingCap int
}

// window after a standalone "graduate" in which "student" must appear,
// wide enough for "graduate and undergraduate students"
const graduateStudentWindow = 40

// wordGraduate reports a standalone "graduate" followed shortly by
// "student". The word inside "undergraduate" must not count, so the
// preceding character has to be a non-letter; the student window keeps
// "graduates of the college" from counting either.
func wordGraduate(t string) bool {
	idx := 0
	for {
		i := strings.Index(t[idx:], "graduate")
		if i < 0 {
			return false
		}
		at := idx + i
		if at == 0 || !isLetter(t[at-1]) {
			rest := t[at+len("graduate"):]
			if len(rest) > graduateStudentWindow {
				rest = rest[:graduateStudentWindow]
			}
			if strings.Contains(rest, "student") {
				return true
			}
		}
		idx = at + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func mentionsUSCitizen(t string) bool {
	return textutil.ContainsAny(t, "u.s. citizen", "us citizen", "american citizen")
}

func mentionsPermanentResident(t string) bool {
	return strings.Contains(t, "permanent resident")
}

func mentionsInternational(t string) bool {
	return textutil.ContainsAny(t, "international", "non-u.s", "non-us", "foreign", "displaced")
}

// phrasing like "who are not US citizens" flips eligibility toward
// international applicants
func excludesUSCitizen(t string) bool {
	return textutil.ContainsAny(t,
		"not us citizen", "not u.s. citizen", "not american citizen",
		"are not us", "are not u.s.", "neither american citizen",
		"who are not us", "who are not u.s.",
	)
}

func excludesPermanentResident(t string) bool {
	return textutil.ContainsAny(t,
		"not permanent resident", "nor permanent resident",
		"neither american citizens or permanent",
		"not us citizens or permanent",
		"are not us citizens or permanent",
		"not american citizens or permanent",
	)
}

// URF lists "Not U.S. Citizen or Permanent Resident" as one of its
// eligibility categories, meaning international applicants may apply.
// Only the URF ruleset recognizes it; everywhere else that phrasing is
// a genuine exclusion.
const urfInternationalEligibility = "not u.s. citizen or permanent resident"

func sharedRules() []rule {
	return []rule{
		{opportunity.CategoryLevel, "undergraduate", func(t string) bool {
			return textutil.ContainsAny(t, "undergraduate", "undergrad")
		}},
		{opportunity.CategoryLevel, "graduate", func(t string) bool {
			return textutil.ContainsAny(t, "master's", "master ", "doctoral", "phd", "ph.d", "dissertation") ||
				wordGraduate(t)
		}},
		{opportunity.CategoryLevel, "postdoc", func(t string) bool {
			return textutil.ContainsAny(t, "postdoc", "post-doc")
		}},

		{opportunity.CategoryType, "fellowship", contains("fellowship")},
		{opportunity.CategoryType, "scholarship", contains("scholarship")},
		{opportunity.CategoryType, "grant", contains("grant")},
		{opportunity.CategoryType, "research", contains("research")},
		{opportunity.CategoryType, "travel", contains("travel")},
		{opportunity.CategoryType, "internship", contains("internship")},
		{opportunity.CategoryType, "language", func(t string) bool {
			return textutil.ContainsAny(t, "language", "study abroad", "arabic", "hebrew", "persian", "turkish")
		}},

		{opportunity.CategoryField, "middle_east_studies", func(t string) bool {
			return textutil.ContainsAny(t, "middle east", "islamic", "muslim", "mena")
		}},
		{opportunity.CategoryField, "humanities", func(t string) bool {
			return textutil.ContainsAny(t, "humanities", "humanistic")
		}},
		{opportunity.CategoryField, "social_sciences", contains("social science")},
	}
}

func contains(keyword string) func(string) bool {
	return func(t string) bool { return strings.Contains(t, keyword) }
}

// Default is the generic ruleset. Exclusion phrases are evaluated
// inside the inclusion predicates so "not a US citizen" suppresses
// us_citizen and counts toward international.
func Default() Ruleset {
	citizenship := []rule{
		{opportunity.CategoryCitizenship, "international", func(t string) bool {
			return mentionsInternational(t) || excludesUSCitizen(t)
		}},
		{opportunity.CategoryCitizenship, "us_citizen", func(t string) bool {
			return mentionsUSCitizen(t) && !excludesUSCitizen(t)
		}},
		{opportunity.CategoryCitizenship, "permanent_resident", func(t string) bool {
			return mentionsPermanentResident(t) && !excludesPermanentResident(t)
		}},
	}
	return Ruleset{rules: append(citizenship, sharedRules()...), fundingCap: 2}
}

// URF differs from Default only in the citizenship rows: the compound
// eligibility phrase above is honored, and it neutralizes the generic
// exclusion test that would otherwise misread it.
func URF() Ruleset {
	excludes := func(t string) bool {
		return excludesUSCitizen(t) && !strings.Contains(t, urfInternationalEligibility)
	}
	citizenship := []rule{
		{opportunity.CategoryCitizenship, "international", func(t string) bool {
			return mentionsInternational(t) || strings.Contains(t, urfInternationalEligibility)
		}},
		{opportunity.CategoryCitizenship, "us_citizen", func(t string) bool {
			return mentionsUSCitizen(t) && !excludes(t)
		}},
		{opportunity.CategoryCitizenship, "permanent_resident", func(t string) bool {
			return mentionsPermanentResident(t) && !excludes(t)
		}},
	}
	return Ruleset{rules: append(citizenship, sharedRules()...), fundingCap: 3}
}

// Infer evaluates the rule table over the text and extracts funding
// amounts. Categories with no matches are omitted entirely.
func (r Ruleset) Infer(text string) opportunity.Tags {
	t := strings.ToLower(text)
	result := opportunity.Tags{}

	for _, row := range r.rules {
		if row.match(t) {
			result.Add(row.category, row.tag)
		}
	}

	funding := ExtractFunding(text, r.fundingCap)
	for _, amount := range funding {
		result.Add(opportunity.CategoryFunding, amount)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

var fundingRegex = regexp.MustCompile(`\$[\d,]+`)

// ExtractFunding returns all distinct dollar amounts in first-seen
// order, capped at max.
func ExtractFunding(text string, max int) []string {
	matches := fundingRegex.FindAllString(text, -1)

	var amounts []string
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		amounts = append(amounts, m)
		if len(amounts) == max {
			break
		}
	}
	return amounts
}

// URF discipline values → canonical field tags.
var disciplineMappings = map[string]string{
	"stem":                      "stem",
	"humanities":                "humanities",
	"social sciences":           "social_sciences",
	"arts and architecture":     "arts",
	"foreign language learning": "language",
}

// NormalizeDiscipline maps a structured discipline string (possibly
// comma-separated) onto canonical field tags. Unrecognized values pass
// through with underscores so nothing is silently dropped.
func NormalizeDiscipline(discipline string) []string {
	if strings.TrimSpace(discipline) == "" {
		return nil
	}

	var fields []string
	seen := map[string]bool{}
	for _, part := range strings.Split(discipline, ",") {
		part = textutil.NormalizeKey(part)
		if part == "" {
			continue
		}
		tag, ok := disciplineMappings[part]
		if !ok {
			tag = strings.ReplaceAll(part, " ", "_")
		}
		if !seen[tag] {
			seen[tag] = true
			fields = append(fields, tag)
		}
	}
	return fields
}
