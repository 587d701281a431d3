package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "a b c", CollapseSpace("  a\n\tb   c  "))
	require.Equal(t, "", CollapseSpace(" \n\t "))
	require.Equal(t, "unchanged", CollapseSpace("unchanged"))
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, "summer fellowship", NormalizeKey("  Summer Fellowship "))
	require.Equal(t, "", NormalizeKey("   "))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abcdef", 3))
	require.Equal(t, "abc", Truncate("abc", 3))
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "", Truncate("", 5))
}

func TestContainsAny(t *testing.T) {
	require.True(t, ContainsAny("open to graduate students", "undergrad", "graduate"))
	require.False(t, ContainsAny("open to graduate students", "postdoc", "faculty"))
	require.False(t, ContainsAny("anything"))
}
