package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reachCriteria() Criteria {
	return Criteria{
		Unit:     "cm",
		Good:     TierRule{Min: 10, Label: "Good flexibility", Color: "#2e7d32", Icon: "check-circle"},
		Moderate: TierRule{Min: 5, Max: 9, Label: "Moderate flexibility", Color: "#f9a825", Icon: "alert-circle"},
		Poor:     TierRule{Max: 4, Label: "Limited flexibility", Color: "#c62828", Icon: "x-circle", Description: "Regular stretching is recommended."},
	}
}

func TestClassifyTiers(t *testing.T) {
	c := reachCriteria()

	cases := []struct {
		value float64
		tier  Tier
	}{
		{15, TierGood},
		{10, TierGood}, // lower bound of good is good, never moderate
		{9, TierModerate},
		{5, TierModerate},
		{4, TierPoor},
		{0, TierPoor},
		{-3, TierPoor},
	}

	for _, tc := range cases {
		res := Classify(tc.value, c)
		assert.Equal(t, tc.tier, res.Tier, "value %v", tc.value)
		assert.Equal(t, tc.value, res.Value)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := reachCriteria()
	first := Classify(10, c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(10, c))
	}
}

func TestClassifyCarriesPresentation(t *testing.T) {
	c := reachCriteria()

	res := Classify(2, c)
	assert.Equal(t, "Limited flexibility", res.Label)
	assert.Equal(t, "#c62828", res.Color)
	assert.Equal(t, "x-circle", res.Icon)
	assert.Equal(t, "Regular stretching is recommended.", res.Description)

	res = Classify(12, c)
	assert.Equal(t, "Good flexibility", res.Label)
	assert.Empty(t, res.Description)
}

func TestCriteriaValidate(t *testing.T) {
	valid := reachCriteria()
	require.NoError(t, valid.Validate())

	overlap := reachCriteria()
	overlap.Moderate.Max = 10 // collides with good.Min
	require.Error(t, overlap.Validate())

	inverted := reachCriteria()
	inverted.Moderate.Min = 12
	require.Error(t, inverted.Validate())

	poorOverlap := reachCriteria()
	poorOverlap.Poor.Max = 5
	require.Error(t, poorOverlap.Validate())
}
