package dupcheck

import (
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

func TestFindSimilar(t *testing.T) {
	opps := []opportunity.Opportunity{
		opp("Sasakawa Young Leaders Fellowship", "Middle East Institute"),
		opp("Sasakawa Young Leaders Fellowships", "URF"),
		opp("Completely Different Grant", "URF"),
	}

	pairs := FindSimilar(opps, 0.93)
	require.Len(t, pairs, 1)
	require.Equal(t, "Middle East Institute", pairs[0].A.Source)
	require.Equal(t, "URF", pairs[0].B.Source)
	require.GreaterOrEqual(t, pairs[0].Similarity, 0.93)
}

func TestFindSimilarIgnoresSameSource(t *testing.T) {
	opps := []opportunity.Opportunity{
		opp("Travel Grant", "URF"),
		opp("Travel Grants", "URF"),
	}
	require.Empty(t, FindSimilar(opps, 0.9))
}

func TestFindSimilarNormalizesCase(t *testing.T) {
	opps := []opportunity.Opportunity{
		opp("  SUMMER RESEARCH FELLOWSHIP ", "Middle East Institute"),
		opp("Summer Research Fellowship", "URF"),
	}

	pairs := FindSimilar(opps, 0.99)
	require.Len(t, pairs, 1)
	require.Equal(t, 1.0, pairs[0].Similarity)
}

func TestFindSimilarOrdering(t *testing.T) {
	opps := []opportunity.Opportunity{
		opp("Global Fellows Program", "Middle East Institute"),
		opp("Global Fellows Program", "URF"),
		opp("Global Fellows Programme 2026", "Other"),
	}

	pairs := FindSimilar(opps, 0.8)
	require.NotEmpty(t, pairs)
	for i := 1; i < len(pairs); i++ {
		require.GreaterOrEqual(t, pairs[i-1].Similarity, pairs[i].Similarity)
	}
	require.Equal(t, 1.0, pairs[0].Similarity)
}
