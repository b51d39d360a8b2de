package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"salespipe/models"
)

func conditionRows() []models.Journey {
	return []models.Journey{
		{ID: 1, ProjectName: "Frame Line", TargetAccount: "Metalsa", JourneyStage: "Negotiation", JourneyValue: 1000, RSM: "JD", Priority: "High", ChanceToSecureOrder: "90%", ExpectedDecisionDate: "2026-09-15", JourneyStatus: "Active"},
		{ID: 2, ProjectName: "Press Retrofit", TargetAccount: "Acme", JourneyStage: "Quote sent", JourneyValue: 2000, RSM: "KL", Priority: "Low", ChanceToSecureOrder: "25%", ExpectedDecisionDate: "2026-10-01", JourneyStatus: "Stalled"},
		{ID: 3, ProjectName: "Weld Cell", TargetAccount: "Borg", JourneyStage: "", JourneyValue: 500, RSM: "JD", Priority: "Medium", JourneyStatus: "Active", DeletedAt: 1},
		{ID: 4, ProjectName: "Conveyor", TargetAccount: "Metalsa", JourneyStage: "Closed Won", JourneyValue: 7500, RSM: "JD", Priority: "High", ChanceToSecureOrder: "Closed Won", ExpectedDecisionDate: "2026-08-01", JourneyStatus: "Active"},
		{ID: 5, ProjectName: "Laser Cell", TargetAccount: "Initech", JourneyStage: "Proposal sent", JourneyValue: 3000, RSM: "KL", Priority: "Urgent", ChanceToSecureOrder: "50%", ExpectedDecisionDate: "2026-09-15 10:00:00", JourneyStatus: "Active"},
	}
}

func evalIDs(tree Tree, rows []models.Journey) []uint {
	var ids []uint
	for _, r := range rows {
		if EvaluateTree(tree, r) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func memoryIDs(f FilterState, rows []models.Journey) []uint {
	var ids []uint
	for _, j := range ApplyFilters(AdaptAll(rows), f, nil) {
		var id uint
		for _, r := range rows {
			if j.ID == Adapt(r).ID {
				id = r.ID
			}
		}
		ids = append(ids, id)
	}
	return ids
}

// The condition tree evaluated against raw rows must select the same
// journeys as the in-memory filter over the adapted rows, for every
// non-tag, substring-style filter combination.
func TestTreeMatchesInMemoryFilter(t *testing.T) {
	rows := conditionRows()
	states := []FilterState{
		{},
		{Search: "metalsa"},
		{Priority: "High"},
		{Priority: "Low"},
		// C is the catch-all letter; raw values like "Urgent" land on it.
		{Priority: "C"},
		{MinValue: "900", MaxValue: "5000"},
		{ConfidenceLevels: []int{90}},
		{ConfidenceLevels: []int{100}},
		{ConfidenceLevels: []int{0}},
		{VisibleStages: []int{StageNegotiation, StageClosedWon}},
		{RSM: "jd"},
		{JourneyStatus: []string{"Active"}},
		{ShowDisabled: true},
		{Search: "metalsa", Priority: "High", MinValue: "5000"},
		{DateFrom: "2026-09-01", DateTo: "2026-12-31"},
		// A datetime on the boundary day is still inside the range.
		{DateTo: "2026-09-15"},
	}
	for i, f := range states {
		assert.Equal(t, memoryIDs(f, rows), evalIDs(BuildConditions(f), rows), "state %d: %+v", i, f)
	}
}

func TestBuildConditionsTagTermsExcluded(t *testing.T) {
	tree := BuildConditions(FilterState{Search: "tag:metal"})
	// Only the disabled-row guard remains.
	assert.Len(t, tree, 1)
	assert.Equal(t, "deletedAt", tree[0].Or[0].Field)
}

func TestStageInUsesClassifier(t *testing.T) {
	tree := Tree{{Or: []Condition{{Field: "Journey_Stage", Op: "stage_in", Value: "5"}}}}
	// "proposal" contains "po" but classifies as Presentations, so it
	// must not match a Closed Won stage filter.
	assert.False(t, EvaluateTree(tree, models.Journey{JourneyStage: "proposal"}))
	assert.True(t, EvaluateTree(tree, models.Journey{JourneyStage: "Closed Won Order"}))
}

func TestStageGroupsNeverRenderToSQL(t *testing.T) {
	tree := BuildConditions(FilterState{VisibleStages: []int{StageClosedWon}})
	sqlTree, memTree := SplitTree(tree)
	for _, g := range sqlTree {
		for _, c := range g.Or {
			assert.NotEqual(t, "stage_in", c.Op)
		}
	}
	assert.Len(t, memTree, 1)

	// A label LIKE-matching a won keyword but classifying elsewhere must
	// not survive the post-fetch stage filter.
	rows := []models.Journey{
		{ID: 1, JourneyStage: "Proposal sent"},
		{ID: 2, JourneyStage: "PO received"},
	}
	kept := FilterRows(rows, memTree)
	assert.Len(t, kept, 1)
	assert.Equal(t, uint(2), kept[0].ID)
}

func TestEvaluateTreeUnknownColumn(t *testing.T) {
	tree := Tree{{Or: []Condition{{Field: "Nope", Op: "eq", Value: "x"}}}}
	assert.False(t, EvaluateTree(tree, models.Journey{}))
}
