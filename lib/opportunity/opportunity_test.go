package opportunity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("Fellowship X", "MEI")

	require.Len(t, id, 12)
	require.Regexp(t, "^[0-9a-f]+$", id)

	// case and surrounding whitespace must not change identity
	require.Equal(t, id, GenerateID(" fellowship x ", "mei"))
	require.Equal(t, id, GenerateID("FELLOWSHIP X", "MEI "))

	require.NotEqual(t, id, GenerateID("Fellowship X", "URF"))
	require.NotEqual(t, id, GenerateID("Fellowship Y", "MEI"))
}

func TestTagsAdd(t *testing.T) {
	tags := Tags{}
	tags.Add(CategoryLevel, "undergraduate")
	tags.Add(CategoryLevel, "graduate")
	tags.Add(CategoryLevel, "undergraduate")

	require.Equal(t, []string{"undergraduate", "graduate"}, tags[CategoryLevel])
}

func TestJSONShape(t *testing.T) {
	o := Opportunity{
		ID:     "abc123def456",
		Name:   "Some Fellowship",
		Source: "MEI",
	}
	serialized, err := json.Marshal(o)
	require.NoError(t, err)

	// optional fields must be absent, not null or empty
	require.NotContains(t, string(serialized), `"tags"`)
	require.NotContains(t, string(serialized), `"deadline"`)
	require.NotContains(t, string(serialized), `"opens"`)
	require.NotContains(t, string(serialized), `"discipline"`)
	require.Contains(t, string(serialized), `"source_url"`)
}
