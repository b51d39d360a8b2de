package pipeline

import (
	"strconv"
	"strings"
	"time"

	"salespipe/models"
)

// Journey is the normalized, view-facing shape of a legacy journey row.
// Stage is the classified id; RawStage keeps the free-text label the
// database still owns.
type Journey struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Stage       int        `json:"stage"`
	RawStage    string     `json:"rawStage"`
	Value       float64    `json:"value"`
	Priority    string     `json:"priority"`
	Confidence  *int       `json:"confidence"`
	Status      string     `json:"status"`
	RSM         string     `json:"rsm"`
	Industry    string     `json:"industry"`
	Dealer      string     `json:"dealer"`
	LeadSource  string     `json:"leadSource"`
	Equipment   string     `json:"equipment"`
	QuoteNumber string     `json:"quoteNumber"`
	QtyOfItems  int        `json:"qtyOfItems"`
	CompanyID   string     `json:"companyId"`
	CompanyName string     `json:"companyName"`
	Disabled    bool       `json:"disabled"`
	CreatedAt   *time.Time `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	CloseDate   *time.Time `json:"closeDate"`

	dates map[string]*time.Time
}

// DateValue returns the normalized date behind a legacy date field name,
// or the derived "closeDate". Nil means the column held a sentinel.
func (j *Journey) DateValue(field string) *time.Time {
	if field == "closeDate" {
		return j.CloseDate
	}
	return j.dates[field]
}

// Adapt normalizes a legacy row: sentinel dates become nil, the "NN%"
// confidence string becomes an integer, the free-text stage is
// classified, and the display name falls back Project_Name ->
// Target_Account -> "Journey {id}".
func Adapt(row models.Journey) Journey {
	id := strconv.FormatUint(uint64(row.ID), 10)

	name := strings.TrimSpace(row.ProjectName)
	if name == "" {
		name = strings.TrimSpace(row.TargetAccount)
	}
	if name == "" {
		name = "Journey " + id
	}

	dates := map[string]*time.Time{
		"CreateDT":                NormalizeDate(row.CreateDT),
		"Action_Date":             NormalizeDate(row.ActionDate),
		"Journey_Start_Date":      NormalizeDate(row.JourneyStartDate),
		"Quote_Presentation_Date": NormalizeDate(row.QuotePresentationDate),
		"Expected_Decision_Date":  NormalizeDate(row.ExpectedDecisionDate),
		"Date_PO_Received":        NormalizeDate(row.DatePOReceived),
		"Date_Lost":               NormalizeDate(row.DateLost),
	}

	updated := dates["Action_Date"]
	if updated == nil {
		updated = dates["CreateDT"]
	}

	j := Journey{
		ID:          id,
		Name:        name,
		Stage:       Classify(row.JourneyStage),
		RawStage:    row.JourneyStage,
		Value:       row.JourneyValue,
		Priority:    NormalizePriority(row.Priority),
		Confidence:  ParseConfidence(row.ChanceToSecureOrder),
		Status:      row.JourneyStatus,
		RSM:         row.RSM,
		Industry:    row.Industry,
		Dealer:      row.Dealer,
		LeadSource:  row.LeadSource,
		Equipment:   row.EquipmentType,
		QuoteNumber: row.QuoteNumber,
		QtyOfItems:  row.QtyOfItems,
		CompanyID:   row.CompanyID,
		CompanyName: row.TargetAccount,
		Disabled:    row.DeletedAt != 0,
		CreatedAt:   dates["CreateDT"],
		UpdatedAt:   updated,
		dates:       dates,
	}
	j.CloseDate = firstDate(
		dates["Expected_Decision_Date"],
		dates["Quote_Presentation_Date"],
		dates["Date_PO_Received"],
		dates["Journey_Start_Date"],
		dates["CreateDT"],
	)
	return j
}

// AdaptAll normalizes a page of rows in order.
func AdaptAll(rows []models.Journey) []Journey {
	out := make([]Journey, 0, len(rows))
	for _, r := range rows {
		out = append(out, Adapt(r))
	}
	return out
}

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339}

// NormalizeDate parses a legacy date string. Empty strings and
// "0000-00-00" style sentinels yield nil.
func NormalizeDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseConfidence maps the Chance_To_Secure_order text to a 0-100
// percentage. "Closed Won" counts as 100, "Closed Lost" as 0, numbers
// clamp into range, and anything unparseable is unknown (nil).
func ParseConfidence(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "won"):
		return intPtr(100)
	case strings.Contains(lower, "lost"):
		return intPtr(0)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return intPtr(n)
}

// NormalizePriority folds the legacy priority text onto the A-D scale.
// Letters pass through; the word forms map High->A, Medium->C, Low->D,
// and anything else lands on C so it stays sortable.
func NormalizePriority(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch strings.ToLower(s) {
	case "a", "b", "c", "d":
		return strings.ToUpper(s)
	case "high", "h":
		return "A"
	case "low", "l":
		return "D"
	}
	return "C"
}

func intPtr(n int) *int { return &n }

func firstDate(dates ...*time.Time) *time.Time {
	for _, d := range dates {
		if d != nil {
			return d
		}
	}
	return nil
}
