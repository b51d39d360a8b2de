package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"", StageLead},
		{"Lead", StageLead},
		{"Open", StageLead},
		{"Fresh prospect", StageLead},
		{"something unrecognized", StageLead},
		{"Qualified", StageQualified},
		{"Discovery Call", StageQualified},
		{"Pain identified", StageQualified},
		{"Presentations", StagePresentations},
		{"Demo scheduled", StagePresentations},
		{"Proposal sent", StagePresentations},
		{"Quote out", StagePresentations},
		{"Negotiation", StageNegotiation},
		{"negotiating terms", StageNegotiation},
		{"PO received", StageClosedWon},
		{"Closed Won", StageClosedWon},
		{"Order booked", StageClosedWon},
		{"Closed Lost", StageClosedLost},
		{"Declined", StageClosedLost},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.label), "label %q", c.label)
	}
}

// Labels matching more than one category resolve by category order,
// not by which keyword appears first in the text.
func TestClassifyCategoryOrderWins(t *testing.T) {
	// "won" and "order" hit stage 5, but "quote"/"proposal" would hit
	// stage 3 first if present.
	assert.Equal(t, StageClosedWon, Classify("Closed Won Order"))
	// "po" is a substring of "proposal"; the presentations category is
	// checked first so proposals never classify as won.
	assert.Equal(t, StagePresentations, Classify("proposal"))
	// "lost the quote" has both a presentations and a lost keyword.
	assert.Equal(t, StagePresentations, Classify("lost the quote"))
	// discovery beats demo: qualified is checked before presentations.
	assert.Equal(t, StageQualified, Classify("discovery demo"))
	// "opportunity" carries "po", and nothing earlier matches, so the
	// keyword scan files it under won rather than the Lead default.
	assert.Equal(t, StageClosedWon, Classify("New Opportunity"))
}

func TestStageCatalog(t *testing.T) {
	assert.Len(t, Stages, 6)
	assert.Equal(t, 0.20, StageWeight(StageLead))
	assert.Equal(t, 0.40, StageWeight(StageQualified))
	assert.Equal(t, 0.60, StageWeight(StagePresentations))
	assert.Equal(t, 0.90, StageWeight(StageNegotiation))
	assert.Equal(t, 1.0, StageWeight(StageClosedWon))
	assert.Equal(t, 0.0, StageWeight(StageClosedLost))
	assert.Equal(t, "Negotiation", StageLabel(StageNegotiation))

	// Unknown ids fall back to Lead.
	assert.Equal(t, "Lead", StageLabel(42))
}
