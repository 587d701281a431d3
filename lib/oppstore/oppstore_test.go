package oppstore

import (
	"os"
	"path/filepath"
	"testing"

	"oppfinder-backend/lib/opportunity"

	"github.com/stretchr/testify/require"
)

func opp(name, source string) opportunity.Opportunity {
	return opportunity.Opportunity{
		ID:     opportunity.GenerateID(name, source),
		Name:   name,
		Source: source,
	}
}

func TestLoadMissing(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "opportunities.json"))
	require.Nil(t, store.Load())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opportunities.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	require.Nil(t, New(path).Load())
}

func TestWriteLoadRoundtrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "opportunities.json"))

	opps := []opportunity.Opportunity{
		opp("Travel Grant", "Middle East Institute"),
		opp("Summer Fellowship", "URF"),
	}
	require.NoError(t, store.Write(opps))

	loaded := store.Load()
	require.Equal(t, opps, loaded)

	// no temp files left behind
	files, err := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), ".opportunities-*"))
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestDedupe(t *testing.T) {
	a := opp("Fellowship A", "URF")
	a.Description = "first"
	dup := opp("Fellowship A", "URF")
	dup.Description = "second"
	b := opp("Fellowship B", "URF")

	deduped := Dedupe([]opportunity.Opportunity{a, dup, b})
	require.Len(t, deduped, 2)
	require.Equal(t, "first", deduped[0].Description)
	require.Equal(t, b.ID, deduped[1].ID)
}

func TestReplaceSource(t *testing.T) {
	a := opp("Kept From Elsewhere", "Middle East Institute")
	b := opp("Old Record", "URF")
	existing := []opportunity.Opportunity{a, b}

	c := opp("New Record", "URF")
	batch := []opportunity.Opportunity{c}

	merged := ReplaceSource(existing, batch, func(o opportunity.Opportunity) bool {
		return o.Source == "URF"
	})

	require.Len(t, merged, 2)
	require.Equal(t, a.ID, merged[0].ID)
	require.Equal(t, c.ID, merged[1].ID)
}

func TestReplaceSourceEmptyBatch(t *testing.T) {
	a := opp("Survivor", "Middle East Institute")
	b := opp("Dropped", "URF")

	merged := ReplaceSource(
		[]opportunity.Opportunity{a, b},
		nil,
		func(o opportunity.Opportunity) bool { return o.Source == "URF" },
	)
	require.Equal(t, []opportunity.Opportunity{a}, merged)
}

func TestReplaceSourceCollision(t *testing.T) {
	// a batch record colliding with an unowned existing id keeps the
	// existing record, first seen wins
	a := opp("Shared Name", "Middle East Institute")
	a.Description = "existing"
	batchDup := opp("Shared Name", "Middle East Institute")
	batchDup.Description = "scraped again"

	merged := ReplaceSource(
		[]opportunity.Opportunity{a},
		[]opportunity.Opportunity{batchDup},
		func(o opportunity.Opportunity) bool { return o.Source == "URF" },
	)
	require.Len(t, merged, 1)
	require.Equal(t, "existing", merged[0].Description)
}
