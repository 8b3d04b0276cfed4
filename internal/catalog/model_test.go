package catalog_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Mouse":           "mouse",
		"Gaming Mice":     "gaming-mice",
		"Head  \t Sets":   "head-sets",
		"  VR Headsets  ": "vr-headsets",
	}
	for in, want := range tests {
		assert.Equal(t, want, catalog.Slug(in), in)
	}
}

func TestScore_DecodesLegacyValues(t *testing.T) {
	raw := `[{"userId":"a","rating":4},{"userId":"b","rating":"5"},{"userId":"c","rating":null}]`

	var ratings []catalog.Rating
	require.NoError(t, json.Unmarshal([]byte(raw), &ratings))
	require.Len(t, ratings, 3)

	assert.Equal(t, catalog.Score(4), ratings[0].Rating)
	assert.True(t, math.IsNaN(float64(ratings[1].Rating)))
	assert.True(t, math.IsNaN(float64(ratings[2].Rating)))

	out, err := json.Marshal(ratings)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"userId":"a","rating":4},{"userId":"b","rating":null},{"userId":"c","rating":null}]`, string(out))
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		ratings []catalog.Rating
		want    catalog.RatingSummary
	}{
		{name: "empty", want: catalog.RatingSummary{}},
		{
			name:    "single",
			ratings: []catalog.Rating{{UserID: "a", Rating: 5}},
			want:    catalog.RatingSummary{Average: 5, Count: 1},
		},
		{
			name:    "rounds to one decimal",
			ratings: []catalog.Rating{{UserID: "a", Rating: 5}, {UserID: "b", Rating: 4}, {UserID: "c", Rating: 4}},
			want:    catalog.RatingSummary{Average: 4.3, Count: 3},
		},
		{
			name:    "non numeric counts as zero",
			ratings: []catalog.Rating{{UserID: "a", Rating: 4}, {UserID: "b", Rating: catalog.Score(math.NaN())}},
			want:    catalog.RatingSummary{Average: 2, Count: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.Summarize(tt.ratings))
		})
	}
}
