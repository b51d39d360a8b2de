package pipeline

import "strings"

// Stage is one of the six fixed pipeline phases. Weight is the
// close-probability multiplier used for weighted pipeline value.
type Stage struct {
	ID     int     `json:"id"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

const (
	StageLead          = 1
	StageQualified     = 2
	StagePresentations = 3
	StageNegotiation   = 4
	StageClosedWon     = 5
	StageClosedLost    = 6
)

var Stages = []Stage{
	{ID: StageLead, Label: "Lead", Weight: 0.20},
	{ID: StageQualified, Label: "Qualified", Weight: 0.40},
	{ID: StagePresentations, Label: "Presentations", Weight: 0.60},
	{ID: StageNegotiation, Label: "Negotiation", Weight: 0.90},
	{ID: StageClosedWon, Label: "Closed Won", Weight: 1.0},
	{ID: StageClosedLost, Label: "Closed Lost", Weight: 0.0},
}

// StageByID returns the catalog entry, or the Lead stage for unknown ids.
func StageByID(id int) Stage {
	for _, s := range Stages {
		if s.ID == id {
			return s
		}
	}
	return Stages[0]
}

// StageLabel returns the canonical label for a stage id.
func StageLabel(id int) string { return StageByID(id).Label }

// StageWeight returns the close-probability weight for a stage id.
func StageWeight(id int) float64 { return StageByID(id).Weight }

// Classify maps a free-text legacy stage label to a stage id.
//
// Categories are checked in the fixed order 2,3,4,5,6 before the Lead
// default; inputs like "Closed Won Order" match multiple categories and
// the order decides the winner. This is a lossy one-way heuristic: the
// free-text label remains authoritative and is kept alongside the id.
func Classify(label string) int {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return StageLead
	}
	switch {
	case containsAny(s, "qualify", "qualifi", "pain", "discover"):
		return StageQualified
	case containsAny(s, "present", "demo", "proposal", "quote"):
		return StagePresentations
	case containsAny(s, "negot"):
		return StageNegotiation
	case containsAny(s, "po", "won", "order"):
		return StageClosedWon
	case containsAny(s, "lost", "declin"):
		return StageClosedLost
	}
	return StageLead
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
