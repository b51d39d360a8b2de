package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"salespipe/models"
)

func sample() []Journey {
	return AdaptAll([]models.Journey{
		{ID: 1, ProjectName: "Frame Line", TargetAccount: "Metalsa", JourneyStage: "Negotiation", JourneyValue: 1000, RSM: "JD", Priority: "High", ChanceToSecureOrder: "90%", ExpectedDecisionDate: "2026-09-15", JourneyStatus: "Active"},
		{ID: 2, ProjectName: "Press Retrofit", TargetAccount: "Acme", JourneyStage: "Closed Lost", JourneyValue: 2000, RSM: "KL", Priority: "Low", ChanceToSecureOrder: "Closed Lost", ExpectedDecisionDate: "2026-10-01", JourneyStatus: "Stalled"},
		{ID: 3, ProjectName: "Weld Cell", TargetAccount: "Borg", JourneyStage: "Lead", JourneyValue: 500, RSM: "JD", Priority: "Medium", ExpectedDecisionDate: "0000-00-00", JourneyStatus: "Active", DeletedAt: 1},
	})
}

func TestParseSearch(t *testing.T) {
	text, tags := ParseSearch("tag:metal frame")
	assert.Equal(t, "frame", text)
	assert.Equal(t, []string{"METAL"}, tags)

	text, tags = ParseSearch("TAG:auto tag:press")
	assert.Equal(t, "", text)
	assert.Equal(t, []string{"AUTO", "PRESS"}, tags)

	text, tags = ParseSearch("plain search")
	assert.Equal(t, "plain search", text)
	assert.Empty(t, tags)

	// Bare tag: is the has-any-tag term.
	text, tags = ParseSearch("tag:")
	assert.Equal(t, "", text)
	assert.Equal(t, []string{""}, tags)
}

func TestApplyFiltersHidesDisabledByDefault(t *testing.T) {
	js := sample()
	got := ApplyFilters(js, FilterState{}, nil)
	assert.Len(t, got, 2)

	got = ApplyFilters(js, FilterState{ShowDisabled: true}, nil)
	assert.Len(t, got, 3)
}

func TestApplyFiltersSearchAndDimensions(t *testing.T) {
	js := sample()

	got := ApplyFilters(js, FilterState{Search: "metalsa"}, nil)
	assert.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = ApplyFilters(js, FilterState{Priority: "high"}, nil)
	assert.Len(t, got, 1)

	got = ApplyFilters(js, FilterState{MinValue: "$1,500"}, nil)
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got = ApplyFilters(js, FilterState{ConfidenceLevels: []int{90}}, nil)
	assert.Len(t, got, 1)

	got = ApplyFilters(js, FilterState{VisibleStages: []int{StageNegotiation}}, nil)
	assert.Len(t, got, 1)

	got = ApplyFilters(js, FilterState{JourneyStatus: []string{"stalled"}}, nil)
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestApplyFiltersDateRangeExcludesSentinels(t *testing.T) {
	js := sample()
	got := ApplyFilters(js, FilterState{ShowDisabled: true, DateFrom: "2026-09-01", DateTo: "2026-09-30"}, nil)
	// Journey 3's decision date is the sentinel, so a date filter drops it.
	assert.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestApplyFiltersTagTerms(t *testing.T) {
	js := sample()
	idx := TagIndex{"1": {"METAL", "AUTOMOTIVE"}, "2": {"PRESS"}}

	got := ApplyFilters(js, FilterState{Search: "tag:metal"}, idx)
	assert.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	// Every term must match.
	got = ApplyFilters(js, FilterState{Search: "tag:metal tag:press"}, idx)
	assert.Empty(t, got)

	// Bare tag: keeps any tagged journey, drops untagged ones.
	got = ApplyFilters(js, FilterState{Search: "tag:", ShowDisabled: true}, idx)
	assert.Len(t, got, 2)
}

func TestWeightedValue(t *testing.T) {
	js := []Journey{
		{Stage: StageNegotiation, Value: 1000},
		{Stage: StageClosedLost, Value: 2000},
	}
	assert.InDelta(t, 900.0, WeightedValue(js), 1e-9)
	assert.InDelta(t, 3000.0, TotalValue(js), 1e-9)
}

func TestSortJourneys(t *testing.T) {
	js := sample()

	SortJourneys(js, "value", "desc")
	assert.Equal(t, "2", js[0].ID)

	SortJourneys(js, "name", "asc")
	assert.Equal(t, "Frame Line", js[0].Name)

	SortJourneys(js, "priority", "asc")
	assert.Equal(t, "A", js[0].Priority)

	// Unknown field keeps current order.
	before := append([]Journey(nil), js...)
	SortJourneys(js, "bogus", "asc")
	assert.Equal(t, before, js)
}
