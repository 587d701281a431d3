// Package oppstore is the repository over the opportunities.json
// store: snapshot load, in-memory merge, atomic replace on write.
package oppstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"oppfinder-backend/lib/opportunity"
)

type Store struct {
	path string
}

func New(path string) Store {
	return Store{path: path}
}

func (s Store) Path() string {
	return s.path
}

// Load reads the current snapshot. A missing or malformed store file
// is treated as empty, never as a fatal condition.
func (s Store) Load() []opportunity.Opportunity {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var opps []opportunity.Opportunity
	err = json.Unmarshal(contents, &opps)
	if err != nil {
		slog.Warn("discarding malformed store file", "path", s.path, "err", err)
		return nil
	}
	return opps
}

// Write replaces the store wholesale: the snapshot is marshaled to a
// temp file in the same directory and renamed over the old one, so a
// crash mid-write never leaves a truncated store behind.
func (s Store) Write(opps []opportunity.Opportunity) error {
	err := os.MkdirAll(filepath.Dir(s.path), 0o755)
	if err != nil {
		return err
	}

	contents, err := json.MarshalIndent(opps, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".opportunities-*.json")
	if err != nil {
		return err
	}
	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Dedupe removes duplicate ids, first seen wins. Later duplicates are
// discarded outright rather than field-merged.
func Dedupe(opps []opportunity.Opportunity) []opportunity.Opportunity {
	seen := map[string]bool{}
	var result []opportunity.Opportunity
	for _, o := range opps {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		result = append(result, o)
	}
	return result
}

// ReplaceSource folds a freshly scraped batch into the snapshot. Every
// existing record the source owns is dropped first, so the source's
// contribution is fully replaced rather than appended; records from
// other sources pass through untouched.
func ReplaceSource(
	existing []opportunity.Opportunity,
	batch []opportunity.Opportunity,
	owns func(opportunity.Opportunity) bool,
) []opportunity.Opportunity {
	var kept []opportunity.Opportunity
	for _, o := range existing {
		if !owns(o) {
			kept = append(kept, o)
		}
	}
	return Dedupe(append(kept, batch...))
}
