package pipeline

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"salespipe/models"
)

// Condition is a single predicate against a legacy column.
//
// Ops: eq, like (case-insensitive contains), gte, lte, priority_eq
// (matches the normalized priority letter), and stage_in, which
// matches the classified stage of the free-text Journey_Stage column
// against a comma-joined id list.
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// Group is a set of conditions joined with OR.
type Group struct {
	Or []Condition `json:"or"`
}

// Tree is the conjunction of its groups: OR within a filter dimension,
// AND across dimensions.
type Tree []Group

// Legacy column behind each filter dimension's date field selector.
var dateColumnByField = map[string]string{
	"closeDate":               "Expected_Decision_Date",
	"Action_Date":             "Action_Date",
	"Journey_Start_Date":      "Journey_Start_Date",
	"Quote_Presentation_Date": "Quote_Presentation_Date",
	"Expected_Decision_Date":  "Expected_Decision_Date",
	"Date_PO_Received":        "Date_PO_Received",
	"Date_Lost":               "Date_Lost",
}

// BuildConditions translates a filter state into a condition tree the
// database can evaluate. Tag terms are excluded: tags live in a side
// table and tag search always runs against the in-memory index.
func BuildConditions(f FilterState) Tree {
	var tree Tree

	if text, _ := ParseSearch(f.Search); text != "" {
		tree = append(tree, Group{Or: []Condition{
			{Field: "Project_Name", Op: "like", Value: text},
			{Field: "Target_Account", Op: "like", Value: text},
		}})
	}
	if len(f.ConfidenceLevels) > 0 {
		var or []Condition
		for _, lvl := range f.ConfidenceLevels {
			or = append(or, Condition{Field: "Chance_To_Secure_order", Op: "eq", Value: fmt.Sprintf("%d%%", lvl)})
			switch lvl {
			case 100:
				or = append(or, Condition{Field: "Chance_To_Secure_order", Op: "eq", Value: "Closed Won"})
			case 0:
				or = append(or, Condition{Field: "Chance_To_Secure_order", Op: "eq", Value: "Closed Lost"})
			}
		}
		tree = append(tree, Group{Or: or})
	}
	if f.Priority != "" {
		tree = append(tree, Group{Or: []Condition{{Field: "Priority", Op: "priority_eq", Value: NormalizePriority(f.Priority)}}})
	}
	if v, ok := parseMoney(f.MinValue); ok {
		tree = append(tree, Group{Or: []Condition{{Field: "Journey_Value", Op: "gte", Value: fmt.Sprintf("%g", v)}}})
	}
	if v, ok := parseMoney(f.MaxValue); ok {
		tree = append(tree, Group{Or: []Condition{{Field: "Journey_Value", Op: "lte", Value: fmt.Sprintf("%g", v)}}})
	}
	if f.DateFrom != "" || f.DateTo != "" {
		col := dateColumnByField[f.DateField]
		if col == "" {
			col = dateColumnByField["closeDate"]
		}
		if f.DateFrom != "" {
			tree = append(tree, Group{Or: []Condition{{Field: col, Op: "gte", Value: f.DateFrom}}})
		}
		if f.DateTo != "" {
			// Inclusive through end of day, so datetime-valued columns
			// on the boundary date still match.
			tree = append(tree, Group{Or: []Condition{{Field: col, Op: "lte", Value: f.DateTo + " 23:59:59"}}})
			if f.DateFrom == "" {
				// Without a lower bound, empty and zero-date sentinels
				// would sort under the upper bound. Absent dates never
				// match a date filter.
				tree = append(tree, Group{Or: []Condition{{Field: col, Op: "gte", Value: "0001-01-01"}}})
			}
		}
	}
	if len(f.VisibleStages) > 0 && len(f.VisibleStages) < len(Stages) {
		ids := make([]string, 0, len(f.VisibleStages))
		for _, id := range f.VisibleStages {
			ids = append(ids, fmt.Sprintf("%d", id))
		}
		tree = append(tree, Group{Or: []Condition{{Field: "Journey_Stage", Op: "stage_in", Value: strings.Join(ids, ",")}}})
	}
	if f.RSM != "" {
		tree = append(tree, Group{Or: []Condition{{Field: "RSM", Op: "like", Value: f.RSM}}})
	}
	if len(f.JourneyStatus) > 0 {
		var or []Condition
		for _, s := range f.JourneyStatus {
			or = append(or, Condition{Field: "Journey_Status", Op: "eq", Value: s})
		}
		tree = append(tree, Group{Or: or})
	}
	if !f.ShowDisabled {
		tree = append(tree, Group{Or: []Condition{{Field: "deletedAt", Op: "eq", Value: "0"}}})
	}
	return tree
}

// Upper-cased raw spellings that normalize to A, B, or D. Everything
// else non-empty lands on C, so a C filter is the complement of these
// lists rather than its own list.
func prioritySpellings(p string) []string {
	switch p {
	case "A":
		return []string{"A", "HIGH", "H"}
	case "B":
		return []string{"B"}
	case "D":
		return []string{"D", "LOW", "L"}
	}
	return nil
}

var priorityLetterSpellings = []string{"A", "HIGH", "H", "B", "D", "LOW", "L"}

// SQL-safe identifier whitelist. Conditions arrive from clients as
// JSON, so anything off this list is dropped on the floor.
var conditionColumns = map[string]bool{
	"Project_Name": true, "Target_Account": true, "Journey_Stage": true,
	"Journey_Type": true, "Journey_Value": true, "Journey_Status": true,
	"Priority": true, "Lead_Source": true, "Equipment_Type": true,
	"Quote_Number": true, "Industry": true, "Dealer": true, "RSM": true,
	"RSM_Territory": true, "CreateDT": true, "Action_Date": true,
	"Journey_Start_Date": true, "Quote_Presentation_Date": true,
	"Expected_Decision_Date": true, "Date_PO_Received": true,
	"Date_Lost": true, "Chance_To_Secure_order": true,
	"Company_ID": true, "deletedAt": true,
}

// SplitTree separates the groups SQL can evaluate from the groups that
// need the stage classifier. A free-text label like "Proposal sent"
// would LIKE-match the "po" keyword of Closed Won even though the
// classifier files it under Presentations, so stage groups never
// render to SQL; callers apply them to the fetched rows with
// FilterRows instead.
func SplitTree(tree Tree) (sql, mem Tree) {
	for _, g := range tree {
		inMem := false
		for _, c := range g.Or {
			if c.Op == "stage_in" {
				inMem = true
				break
			}
		}
		if inMem {
			mem = append(mem, g)
		} else {
			sql = append(sql, g)
		}
	}
	return sql, mem
}

// FilterRows keeps the raw rows matching the tree, evaluated in memory.
func FilterRows(rows []models.Journey, tree Tree) []models.Journey {
	if len(tree) == 0 {
		return rows
	}
	out := make([]models.Journey, 0, len(rows))
	for _, r := range rows {
		if EvaluateTree(tree, r) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyConditions renders the tree onto a gorm query. Stage groups are
// skipped (see SplitTree); callers post-filter with FilterRows.
func ApplyConditions(db *gorm.DB, tree Tree) *gorm.DB {
	sqlTree, _ := SplitTree(tree)
	for _, g := range sqlTree {
		var clauses []string
		var args []interface{}
		for _, c := range g.Or {
			if !conditionColumns[c.Field] {
				continue
			}
			switch c.Op {
			case "eq":
				clauses = append(clauses, fmt.Sprintf("%q = ?", c.Field))
				args = append(args, c.Value)
			case "like":
				clauses = append(clauses, fmt.Sprintf("%q ILIKE ?", c.Field))
				args = append(args, "%"+c.Value+"%")
			case "gte":
				clauses = append(clauses, fmt.Sprintf("%q >= ?", c.Field))
				args = append(args, c.Value)
			case "lte":
				clauses = append(clauses, fmt.Sprintf("%q <= ?", c.Field))
				args = append(args, c.Value)
			case "priority_eq":
				if spellings := prioritySpellings(c.Value); spellings != nil {
					clauses = append(clauses, fmt.Sprintf("UPPER(%q) IN ?", c.Field))
					args = append(args, spellings)
				} else {
					// C is the catch-all: anything set that is not a
					// recognized A, B, or D spelling.
					clauses = append(clauses, fmt.Sprintf("(%q <> '' AND UPPER(%q) NOT IN ?)", c.Field, c.Field))
					args = append(args, priorityLetterSpellings)
				}
			}
		}
		if len(clauses) > 0 {
			db = db.Where(strings.Join(clauses, " OR "), args...)
		}
	}
	return db
}

// EvaluateTree runs the tree against a raw row in memory. It is the
// reference semantics for ApplyConditions and what the snapshot worker
// uses when serving filters from the cached baseline.
func EvaluateTree(tree Tree, row models.Journey) bool {
	for _, g := range tree {
		matched := false
		for _, c := range g.Or {
			if evalCondition(c, row) {
				matched = true
				break
			}
		}
		if len(g.Or) > 0 && !matched {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, row models.Journey) bool {
	if c.Op == "stage_in" {
		stage := Classify(row.JourneyStage)
		for _, idStr := range strings.Split(c.Value, ",") {
			if atoiSafe(idStr) == stage {
				return true
			}
		}
		return false
	}

	val, ok := columnValue(c.Field, row)
	if !ok {
		return false
	}
	switch c.Op {
	case "eq":
		return strings.EqualFold(val, c.Value)
	case "like":
		return strings.Contains(strings.ToLower(val), strings.ToLower(c.Value))
	case "gte":
		return compareColumn(c.Field, val, c.Value) >= 0
	case "lte":
		return compareColumn(c.Field, val, c.Value) <= 0
	case "priority_eq":
		return NormalizePriority(val) == c.Value
	}
	return false
}

func columnValue(field string, row models.Journey) (string, bool) {
	switch field {
	case "Project_Name":
		return row.ProjectName, true
	case "Target_Account":
		return row.TargetAccount, true
	case "Journey_Stage":
		return row.JourneyStage, true
	case "Journey_Type":
		return row.JourneyType, true
	case "Journey_Value":
		return fmt.Sprintf("%g", row.JourneyValue), true
	case "Journey_Status":
		return row.JourneyStatus, true
	case "Priority":
		return row.Priority, true
	case "Lead_Source":
		return row.LeadSource, true
	case "Equipment_Type":
		return row.EquipmentType, true
	case "Quote_Number":
		return row.QuoteNumber, true
	case "Industry":
		return row.Industry, true
	case "Dealer":
		return row.Dealer, true
	case "RSM":
		return row.RSM, true
	case "RSM_Territory":
		return row.RSMTerritory, true
	case "CreateDT":
		return row.CreateDT, true
	case "Action_Date":
		return row.ActionDate, true
	case "Journey_Start_Date":
		return row.JourneyStartDate, true
	case "Quote_Presentation_Date":
		return row.QuotePresentationDate, true
	case "Expected_Decision_Date":
		return row.ExpectedDecisionDate, true
	case "Date_PO_Received":
		return row.DatePOReceived, true
	case "Date_Lost":
		return row.DateLost, true
	case "Chance_To_Secure_order":
		return row.ChanceToSecureOrder, true
	case "Company_ID":
		return row.CompanyID, true
	case "deletedAt":
		return fmt.Sprintf("%d", row.DeletedAt), true
	}
	return "", false
}

// compareColumn compares numerically for the value column and
// lexicographically otherwise. Legacy ISO date strings order correctly
// as text; sentinel dates compare below any real range bound.
func compareColumn(field, a, b string) int {
	if field == "Journey_Value" {
		av, _ := parseMoney(a)
		bv, _ := parseMoney(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
