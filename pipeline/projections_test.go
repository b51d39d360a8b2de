package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func TestProjectByMonth(t *testing.T) {
	asOf, _ := time.Parse("2006-01-02", "2026-08-30")
	js := []Journey{
		{ID: "1", Stage: StageNegotiation, Value: 1000, CloseDate: datePtr("2026-09-15"), CreatedAt: datePtr("2026-08-10")},
		{ID: "2", Stage: StageLead, Value: 500, CloseDate: datePtr("2026-09-28"), CreatedAt: datePtr("2026-08-20")},
		{ID: "3", Stage: StageClosedWon, Value: 2000, CloseDate: datePtr("2026-10-02")},
		{ID: "4", Stage: StageClosedLost, Value: 9999, CloseDate: datePtr("2026-10-02")},
		{ID: "5", Stage: StageQualified, Value: 300}, // no close date
		{ID: "6", Stage: StageNegotiation, Value: 100, CloseDate: datePtr("2026-09-01"), Disabled: true},
	}

	months, unscheduled := ProjectByMonth(js, asOf)
	require.Len(t, months, 2)

	sep := months[0]
	assert.Equal(t, "2026-09", sep.Month)
	assert.InDelta(t, 1500.0, sep.TotalValue, 1e-9)
	assert.InDelta(t, 1000*0.9+500*0.2, sep.WeightedValue, 1e-9)
	assert.Equal(t, 2, sep.Count)
	assert.InDelta(t, 750.0, sep.AvgValue, 1e-9)
	assert.InDelta(t, 15.0, sep.AvgAgeDays, 1e-9) // (20 + 10) / 2

	oct := months[1]
	assert.Equal(t, "2026-10", oct.Month)
	assert.InDelta(t, 2000.0, oct.WeightedValue, 1e-9, "closed lost excluded")

	assert.InDelta(t, 300*0.4, unscheduled, 1e-9)
}

func TestProjectionWindow(t *testing.T) {
	months := []MonthProjection{
		{Month: "2026-08"}, {Month: "2026-09"}, {Month: "2027-03"},
	}
	from, _ := time.Parse("2006-01-02", "2026-09-01")
	got := ProjectionWindow(months, from, 6)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-09", got[0].Month)

	assert.Len(t, ProjectionWindow(months, from, 0), 3)
}
