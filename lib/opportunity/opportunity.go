// Package opportunity defines the canonical record produced by every
// source scraper and stored in opportunities.json.
package opportunity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"oppfinder-backend/lib/textutil"
)

// Tag categories. Each is an independent classification axis; a
// category key is absent from Tags when nothing matched, never an
// empty list.
const (
	CategoryLevel       = "level"
	CategoryCitizenship = "citizenship"
	CategoryType        = "type"
	CategoryField       = "field"
	CategoryFunding     = "funding"
)

// Tags maps a category to its ordered, unique tag list.
type Tags map[string][]string

// Add appends a tag to a category unless it is already present.
func (t Tags) Add(category, tag string) {
	for _, existing := range t[category] {
		if existing == tag {
			return
		}
	}
	t[category] = append(t[category], tag)
}

// Opportunity is one fellowship/grant/scholarship listing. JSON field
// names follow the on-disk store format.
type Opportunity struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	SourceURL       string    `json:"source_url"`
	Tags            Tags      `json:"tags,omitempty"`
	Deadline        string    `json:"deadline,omitempty"`
	DeadlineDisplay string    `json:"deadline_display,omitempty"`
	Opens           string    `json:"opens,omitempty"`
	OpensDisplay    string    `json:"opens_display,omitempty"`
	Discipline      string    `json:"discipline,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// GenerateID derives the stable identity of a (name, source) pair:
// a truncated md5 of the normalized pair. Identical normalized input
// always yields the identical id, which is what makes re-merging
// across runs idempotent. Truncation makes collisions possible in
// principle; that is accepted.
func GenerateID(name, source string) string {
	raw := fmt.Sprintf("%s|%s", textutil.NormalizeKey(name), textutil.NormalizeKey(source))
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:12]
}
