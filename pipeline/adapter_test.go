package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipe/models"
)

func TestAdaptNameFallback(t *testing.T) {
	j := Adapt(models.Journey{ID: 7, ProjectName: "Frame Line Rebuild"})
	assert.Equal(t, "Frame Line Rebuild", j.Name)

	j = Adapt(models.Journey{ID: 7, TargetAccount: "Metalsa"})
	assert.Equal(t, "Metalsa", j.Name)

	j = Adapt(models.Journey{ID: 7})
	assert.Equal(t, "Journey 7", j.Name)
}

func TestNormalizeDate(t *testing.T) {
	assert.Nil(t, NormalizeDate(""))
	assert.Nil(t, NormalizeDate("0000-00-00"))
	assert.Nil(t, NormalizeDate("0000-00-00 00:00:00"))
	assert.Nil(t, NormalizeDate("not a date"))

	d := NormalizeDate("2026-03-15")
	require.NotNil(t, d)
	assert.Equal(t, "2026-03-15", d.Format("2006-01-02"))

	d = NormalizeDate("2026-03-15 10:30:00")
	require.NotNil(t, d)
	assert.Equal(t, 10, d.Hour())
}

func TestParseConfidence(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"", nil},
		{"90%", intPtr(90)},
		{"25%", intPtr(25)},
		{"100%", intPtr(100)},
		{"0%", intPtr(0)},
		{"Closed Won", intPtr(100)},
		{"Closed Lost", intPtr(0)},
		{"garbage", nil},
		{"150%", intPtr(100)}, // clamped
	}
	for _, c := range cases {
		got := ParseConfidence(c.in)
		if c.want == nil {
			assert.Nil(t, got, "input %q", c.in)
			continue
		}
		require.NotNil(t, got, "input %q", c.in)
		assert.Equal(t, *c.want, *got, "input %q", c.in)
	}
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, "A", NormalizePriority("a"))
	assert.Equal(t, "B", NormalizePriority(" B "))
	assert.Equal(t, "A", NormalizePriority("High"))
	assert.Equal(t, "C", NormalizePriority("Medium"))
	assert.Equal(t, "D", NormalizePriority("low"))
	assert.Equal(t, "C", NormalizePriority("Urgent"))
	assert.Equal(t, "", NormalizePriority(""))
}

func TestAdaptCloseDateChain(t *testing.T) {
	row := models.Journey{
		ID:                    1,
		CreateDT:              "2026-01-01",
		QuotePresentationDate: "2026-02-10",
		ExpectedDecisionDate:  "0000-00-00",
	}
	j := Adapt(row)
	require.NotNil(t, j.CloseDate)
	assert.Equal(t, "2026-02-10", j.CloseDate.Format("2006-01-02"))

	// With nothing but CreateDT, that wins.
	j = Adapt(models.Journey{ID: 2, CreateDT: "2026-01-01"})
	require.NotNil(t, j.CloseDate)
	assert.Equal(t, "2026-01-01", j.CloseDate.Format("2006-01-02"))
}

func TestAdaptStagePair(t *testing.T) {
	j := Adapt(models.Journey{ID: 3, JourneyStage: "negotiating w/ purchasing"})
	assert.Equal(t, StageNegotiation, j.Stage)
	assert.Equal(t, "negotiating w/ purchasing", j.RawStage)
}

func TestAdaptDisabled(t *testing.T) {
	assert.False(t, Adapt(models.Journey{ID: 4}).Disabled)
	assert.True(t, Adapt(models.Journey{ID: 4, DeletedAt: 1}).Disabled)
}
