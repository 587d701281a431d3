// Package overrides applies operator-authored corrections to the
// store after scraping, so manual edits survive automated re-harvests.
package overrides

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"

	"oppfinder-backend/lib/opportunity"
)

// reserved patch keys; `note` is documentation and `deleted` is the
// removal sentinel (any truthy value: true, a nonzero number, a
// non-empty string), neither is ever written onto a record
const (
	keyNote    = "note"
	keyDeleted = "deleted"
)

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return false
}

type BlockedSite struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// File is the overrides.json schema: opportunity id → partial field
// patch, plus a list of sites an operator should check by hand.
type File struct {
	Overrides    map[string]map[string]any `json:"overrides"`
	BlockedSites []BlockedSite             `json:"blocked_sites"`
}

// Load reads an override file; missing or malformed files mean "no
// overrides" rather than an error.
func Load(path string) File {
	contents, err := os.ReadFile(path)
	if err != nil {
		return File{}
	}
	var f File
	err = json.Unmarshal(contents, &f)
	if err != nil {
		slog.Warn("discarding malformed override file", "path", path, "err", err)
		return File{}
	}
	return f
}

type FieldChange struct {
	ID    string
	Name  string
	Field string
	Old   any
	New   any
}

type Deletion struct {
	ID   string
	Name string
	Note string
}

type Application struct {
	Changes   []FieldChange
	Deletions []Deletion
	// patch keys naming no known record field, reported so typos in
	// the override file surface instead of silently doing nothing
	SkippedFields []FieldChange
	Patched       int
}

// Apply patches and deletes records per the override file and reports
// every transition. Reapplying the same file to an already-patched
// store changes nothing further.
func Apply(opps []opportunity.Opportunity, f File) ([]opportunity.Opportunity, Application) {
	var report Application
	var result []opportunity.Opportunity

	for _, o := range opps {
		patch, ok := f.Overrides[o.ID]
		if !ok {
			result = append(result, o)
			continue
		}

		if truthy(patch[keyDeleted]) {
			note, _ := patch[keyNote].(string)
			report.Deletions = append(report.Deletions, Deletion{
				ID:   o.ID,
				Name: o.Name,
				Note: note,
			})
			continue
		}

		keys := make([]string, 0, len(patch))
		for k := range patch {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		touched := false
		for _, key := range keys {
			if key == keyNote || key == keyDeleted {
				continue
			}
			old, ok := applyField(&o, key, patch[key])
			change := FieldChange{ID: o.ID, Name: o.Name, Field: key, Old: old, New: patch[key]}
			if !ok {
				report.SkippedFields = append(report.SkippedFields, change)
				continue
			}
			report.Changes = append(report.Changes, change)
			touched = true
		}
		if touched {
			report.Patched++
		}
		result = append(result, o)
	}

	return result, report
}

func applyField(o *opportunity.Opportunity, key string, value any) (old any, ok bool) {
	str := func(target *string) (any, bool) {
		s, isString := value.(string)
		if !isString {
			return nil, false
		}
		old := *target
		*target = s
		return old, true
	}

	switch key {
	case "name":
		return str(&o.Name)
	case "description":
		return str(&o.Description)
	case "url":
		return str(&o.URL)
	case "source":
		return str(&o.Source)
	case "source_url":
		return str(&o.SourceURL)
	case "deadline":
		return str(&o.Deadline)
	case "deadline_display":
		return str(&o.DeadlineDisplay)
	case "opens":
		return str(&o.Opens)
	case "opens_display":
		return str(&o.OpensDisplay)
	case "discipline":
		return str(&o.Discipline)
	case "tags":
		raw, isMap := value.(map[string]any)
		if !isMap {
			return nil, false
		}
		replacement := opportunity.Tags{}
		for category, list := range raw {
			items, isList := list.([]any)
			if !isList {
				return nil, false
			}
			for _, item := range items {
				tag, isString := item.(string)
				if !isString {
					return nil, false
				}
				replacement.Add(category, tag)
			}
		}
		old = o.Tags
		o.Tags = replacement
		return old, true
	}
	return nil, false
}
