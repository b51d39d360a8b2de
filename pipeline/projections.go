package pipeline

import (
	"sort"
	"time"
)

// MonthProjection is one month's expected revenue roll-up.
type MonthProjection struct {
	Month         string  `json:"month"` // "2026-01"
	TotalValue    float64 `json:"totalValue"`
	WeightedValue float64 `json:"weightedValue"`
	Count         int     `json:"count"`
	AvgValue      float64 `json:"avgValue"`
	AvgAgeDays    float64 `json:"avgAgeDays"`
}

// ProjectByMonth buckets open and won journeys by close-date month and
// sums raw and probability-weighted value per bucket, with average
// deal size and average deal age (days since creation, as of asOf).
// Closed-lost and disabled journeys are skipped; journeys with no
// close date roll into the second return value, the unscheduled
// weighted total.
func ProjectByMonth(js []Journey, asOf time.Time) ([]MonthProjection, float64) {
	type bucket struct {
		MonthProjection
		ageSum float64
		aged   int
	}
	byMonth := map[string]*bucket{}
	var unscheduled float64

	for _, j := range js {
		if j.Stage == StageClosedLost || j.Disabled {
			continue
		}
		w := j.Value * StageWeight(j.Stage)
		if j.CloseDate == nil {
			unscheduled += w
			continue
		}
		key := j.CloseDate.Format("2006-01")
		b := byMonth[key]
		if b == nil {
			b = &bucket{MonthProjection: MonthProjection{Month: key}}
			byMonth[key] = b
		}
		b.TotalValue += j.Value
		b.WeightedValue += w
		b.Count++
		if j.CreatedAt != nil {
			b.ageSum += asOf.Sub(*j.CreatedAt).Hours() / 24
			b.aged++
		}
	}

	out := make([]MonthProjection, 0, len(byMonth))
	for _, b := range byMonth {
		m := b.MonthProjection
		if b.Count > 0 {
			m.AvgValue = b.TotalValue / float64(b.Count)
		}
		if b.aged > 0 {
			m.AvgAgeDays = b.ageSum / float64(b.aged)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out, unscheduled
}

// ProjectionWindow trims projections to months within [from, from+months).
func ProjectionWindow(projections []MonthProjection, from time.Time, months int) []MonthProjection {
	if months <= 0 {
		return projections
	}
	start := from.Format("2006-01")
	end := from.AddDate(0, months, 0).Format("2006-01")
	out := make([]MonthProjection, 0, len(projections))
	for _, m := range projections {
		if m.Month >= start && m.Month < end {
			out = append(out, m)
		}
	}
	return out
}
