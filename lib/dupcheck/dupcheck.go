// Package dupcheck flags listings from different sources whose names
// are suspiciously similar. Identity is a hash of (name, source), so
// the same fellowship harvested from two sites gets two ids; this
// report lets an operator spot those and author an override. Nothing
// here mutates the store.
package dupcheck

import (
	"sort"

	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

type Pair struct {
	A          opportunity.Opportunity
	B          opportunity.Opportunity
	Similarity float64
}

// FindSimilar compares normalized names across sources and returns
// pairs at or above the threshold, most similar first.
func FindSimilar(opps []opportunity.Opportunity, threshold float64) []Pair {
	var pairs []Pair

	for i := 0; i < len(opps); i++ {
		for j := i + 1; j < len(opps); j++ {
			if opps[i].Source == opps[j].Source {
				continue
			}
			similarity := matchr.JaroWinkler(
				textutil.NormalizeKey(opps[i].Name),
				textutil.NormalizeKey(opps[j].Name),
				false,
			)
			if similarity >= threshold {
				pairs = append(pairs, Pair{A: opps[i], B: opps[j], Similarity: similarity})
			}
		}
	}

	sort.Slice(pairs, func(a, b int) bool {
		return pairs[a].Similarity > pairs[b].Similarity
	})
	return pairs
}
