package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterState is the full set of list/kanban filters. It round-trips
// through preferences as JSON, so zero values must all mean "off".
type FilterState struct {
	Search           string   `json:"search"`
	ConfidenceLevels []int    `json:"confidenceLevels"`
	DateField        string   `json:"dateField"`
	DateFrom         string   `json:"dateFrom"`
	DateTo           string   `json:"dateTo"`
	Priority         string   `json:"priority"`
	MinValue         string   `json:"minValue"`
	MaxValue         string   `json:"maxValue"`
	VisibleStages    []int    `json:"visibleStages"`
	RSM              string   `json:"rsm"`
	JourneyStatus    []string `json:"journeyStatus"`
	ShowDisabled     bool     `json:"showDisabled"`
}

// HasActiveFilters reports whether anything beyond the defaults is set.
func (f FilterState) HasActiveFilters() bool {
	return strings.TrimSpace(f.Search) != "" ||
		len(f.ConfidenceLevels) > 0 ||
		f.DateFrom != "" || f.DateTo != "" ||
		f.Priority != "" ||
		f.MinValue != "" || f.MaxValue != "" ||
		len(f.VisibleStages) > 0 ||
		f.RSM != "" ||
		len(f.JourneyStatus) > 0 ||
		f.ShowDisabled
}

// ParseSearch splits a search box value into the free-text query and
// any "tag:" terms. "tag:metal frame" yields tags=[METAL] and
// text="frame"; tag terms are upper-cased for index lookups. A bare
// "tag:" becomes the empty term, which matches any tagged journey.
func ParseSearch(search string) (text string, tags []string) {
	var words []string
	for _, w := range strings.Fields(search) {
		if rest, ok := strings.CutPrefix(strings.ToLower(w), "tag:"); ok {
			tags = append(tags, strings.ToUpper(rest))
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), tags
}

// TagIndex maps a journey id to its upper-cased tag descriptions.
type TagIndex map[string][]string

// Matches reports whether every term is a substring of at least one of
// the journey's tags. The empty term matches any tagged journey and no
// untagged one.
func (ti TagIndex) Matches(journeyID string, terms []string) bool {
	descs := ti[journeyID]
	for _, term := range terms {
		found := false
		for _, d := range descs {
			if strings.Contains(d, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ApplyFilters evaluates the filter state against normalized journeys
// in memory. tags may be nil when no tag: terms are in play.
func ApplyFilters(journeys []Journey, f FilterState, tags TagIndex) []Journey {
	text, tagTerms := ParseSearch(f.Search)
	minV, hasMin := parseMoney(f.MinValue)
	maxV, hasMax := parseMoney(f.MaxValue)
	from := NormalizeDate(f.DateFrom)
	to := NormalizeDate(f.DateTo)
	dateField := f.DateField
	if dateField == "" {
		dateField = "closeDate"
	}

	out := make([]Journey, 0, len(journeys))
	for _, j := range journeys {
		if j.Disabled && !f.ShowDisabled {
			continue
		}
		if text != "" && !FuzzyMatch(j.Name+" "+j.CompanyName, text) {
			continue
		}
		if len(tagTerms) > 0 && !tags.Matches(j.ID, tagTerms) {
			continue
		}
		if len(f.ConfidenceLevels) > 0 && !confidenceIn(j.Confidence, f.ConfidenceLevels) {
			continue
		}
		if f.Priority != "" && j.Priority != NormalizePriority(f.Priority) {
			continue
		}
		if hasMin && j.Value < minV {
			continue
		}
		if hasMax && j.Value > maxV {
			continue
		}
		if len(f.VisibleStages) > 0 && !intIn(j.Stage, f.VisibleStages) {
			continue
		}
		if f.RSM != "" && !strings.Contains(strings.ToLower(j.RSM), strings.ToLower(f.RSM)) {
			continue
		}
		if len(f.JourneyStatus) > 0 && !statusIn(j.Status, f.JourneyStatus) {
			continue
		}
		if from != nil || to != nil {
			d := j.DateValue(dateField)
			if d == nil {
				continue
			}
			if from != nil && d.Before(*from) {
				continue
			}
			if to != nil && d.After(endOfDay(*to)) {
				continue
			}
		}
		out = append(out, j)
	}
	return out
}

// SortJourneys orders journeys in place by a sort field. Unknown fields
// leave the order untouched. The sort is stable so equal keys keep
// their fetch order.
func SortJourneys(js []Journey, field, direction string) {
	less := lessFunc(field)
	if less == nil {
		return
	}
	desc := strings.EqualFold(direction, "desc")
	sort.SliceStable(js, func(a, b int) bool {
		if desc {
			return less(js[b], js[a])
		}
		return less(js[a], js[b])
	})
}

func lessFunc(field string) func(a, b Journey) bool {
	switch field {
	case "name":
		return func(a, b Journey) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "value":
		return func(a, b Journey) bool { return a.Value < b.Value }
	case "stage":
		return func(a, b Journey) bool { return a.Stage < b.Stage }
	case "confidence":
		return func(a, b Journey) bool {
			return derefConf(a.Confidence) < derefConf(b.Confidence)
		}
	case "closeDate", "createdAt", "updatedAt":
		return func(a, b Journey) bool {
			return timeKey(pick(a, field)).Before(timeKey(pick(b, field)))
		}
	case "rsm":
		return func(a, b Journey) bool {
			return strings.ToLower(a.RSM) < strings.ToLower(b.RSM)
		}
	case "priority":
		return func(a, b Journey) bool {
			return priorityRank(a.Priority) < priorityRank(b.Priority)
		}
	}
	return nil
}

func pick(j Journey, field string) *time.Time {
	switch field {
	case "createdAt":
		return j.CreatedAt
	case "updatedAt":
		return j.UpdatedAt
	}
	return j.CloseDate
}

// TotalValue sums raw journey values.
func TotalValue(js []Journey) float64 {
	var sum float64
	for _, j := range js {
		sum += j.Value
	}
	return sum
}

// WeightedValue sums value*stage-weight, the probability-adjusted
// pipeline total shown in the kanban header.
func WeightedValue(js []Journey) float64 {
	var sum float64
	for _, j := range js {
		sum += j.Value * StageWeight(j.Stage)
	}
	return sum
}

func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func confidenceIn(c *int, levels []int) bool {
	if c == nil {
		return false
	}
	return intIn(*c, levels)
}

func intIn(n int, xs []int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}

func statusIn(s string, xs []string) bool {
	for _, x := range xs {
		if strings.EqualFold(s, x) {
			return true
		}
	}
	return false
}

func derefConf(c *int) int {
	if c == nil {
		return -1
	}
	return *c
}

func priorityRank(p string) int {
	switch p {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	}
	return 4
}

func timeKey(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
