package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/pipeline"
	"salespipe/utils"
)

type ExportController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewExportController(db *gorm.DB, logger *log.Logger) *ExportController {
	return &ExportController{
		DB:     db,
		Logger: logger,
	}
}

// Export column order is part of the sheet contract; downstream
// spreadsheets key on these headers.
var exportHeaders = []string{
	"Quote Number", "CreateDate", "ActionDate", "Confidence",
	"Est PO Date", "Stage", "RSM", "Industry", "Dealer", "Customer",
	"Equipment", "Lead Source", "Projected Value", "Journey Steps",
	"Contact Name", "Contact Email", "Contact Position", "Address",
}

const exportRowCap = 10000

// ExportJourneys builds an xlsx workbook of the filtered journeys,
// contacts and addresses joined in as multi-line cells.
func (ec *ExportController) ExportJourneys(c *fiber.Ctx) error {
	var filters pipeline.FilterState
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filters parameter", err)
		}
	}

	tree := pipeline.BuildConditions(filters)
	q := pipeline.ApplyConditions(ec.DB.Model(&models.Journey{}), tree)
	var rows []models.Journey
	if err := q.Order(`"ID" ASC`).Limit(exportRowCap).Find(&rows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journeys", err)
	}
	// Stage filters evaluate through the classifier, not SQL.
	_, memTree := pipeline.SplitTree(tree)
	rows = pipeline.FilterRows(rows, memTree)

	// Tag terms filter in memory, same as the views.
	if _, terms := pipeline.ParseSearch(filters.Search); len(terms) > 0 {
		tags, err := LoadTagIndex(ec.DB)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load tags", err)
		}
		kept := rows[:0]
		for _, r := range rows {
			if tags.Matches(strconv.FormatUint(uint64(r.ID), 10), terms) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	contacts, err := ec.loadContacts(rows)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load contacts", err)
	}
	addresses, err := ec.loadAddresses(rows)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load addresses", err)
	}
	steps, err := ec.loadNextSteps(rows)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load journey steps", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Journeys"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	currencyFmt := "$#,##0.00"
	currencyStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: &currencyFmt,
		Alignment:    &excelize.Alignment{Vertical: "top"},
	})

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	firstHeader, _ := excelize.CoordinatesToCellName(1, 1)
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	_ = f.SetCellStyle(sheet, firstHeader, lastHeader, headerStyle)

	widths := make([]int, len(exportHeaders))
	for i, h := range exportHeaders {
		widths[i] = len(h)
	}

	for rowIdx, row := range rows {
		j := pipeline.Adapt(row)
		contact := contacts[row.ID]
		lines := 1
		values := []interface{}{
			row.QuoteNumber,
			row.CreateDT,
			row.ActionDate,
			row.ChanceToSecureOrder,
			row.DatePOReceived,
			pipeline.StageLabel(j.Stage),
			row.RSM,
			row.Industry,
			row.Dealer,
			j.CompanyName,
			row.EquipmentType,
			row.LeadSource,
			j.Value * pipeline.StageWeight(j.Stage),
			steps[row.ID],
			contact.names,
			contact.emails,
			contact.positions,
			addresses[row.CompanyID],
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, v)
			if s, ok := v.(string); ok {
				split := strings.Split(s, "\n")
				if len(split) > lines {
					lines = len(split)
				}
				for _, line := range split {
					if len(line) > widths[colIdx] {
						widths[colIdx] = len(line)
					}
				}
			}
		}
		// Wrapped multi-line cells need the row tall enough to show
		// every line.
		if lines > 1 {
			_ = f.SetRowHeight(sheet, rowIdx+2, float64(lines)*15)
		}
	}

	if len(rows) > 0 {
		firstData, _ := excelize.CoordinatesToCellName(1, 2)
		lastData, _ := excelize.CoordinatesToCellName(len(exportHeaders), len(rows)+1)
		_ = f.SetCellStyle(sheet, firstData, lastData, wrapStyle)

		// Projected Value column gets the currency format.
		valueCol := 13
		firstValue, _ := excelize.CoordinatesToCellName(valueCol, 2)
		lastValue, _ := excelize.CoordinatesToCellName(valueCol, len(rows)+1)
		_ = f.SetCellStyle(sheet, firstValue, lastValue, currencyStyle)
	}

	for i, w := range widths {
		if w > 60 {
			w = 60
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, float64(w)+2)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build workbook", err)
	}

	filename := fmt.Sprintf("pipeline-export-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

type contactCell struct {
	names, emails, positions string
}

func (ec *ExportController) loadContacts(rows []models.Journey) (map[uint]contactCell, error) {
	ids := journeyIDs(rows)
	out := map[uint]contactCell{}
	if len(ids) == 0 {
		return out, nil
	}

	var contacts []models.JourneyContact
	if err := ec.DB.Where(`"Jrn_ID" IN ?`, ids).Order(`"ID" ASC`).Find(&contacts).Error; err != nil {
		return nil, err
	}
	for _, ct := range contacts {
		cell := out[ct.JrnID]
		cell.names = appendLine(cell.names, ct.Name)
		cell.emails = appendLine(cell.emails, ct.Email)
		cell.positions = appendLine(cell.positions, ct.Position)
		out[ct.JrnID] = cell
	}
	return out, nil
}

func (ec *ExportController) loadAddresses(rows []models.Journey) (map[string]string, error) {
	companyIDs := map[string]struct{}{}
	for _, r := range rows {
		if r.CompanyID != "" && r.CompanyID != "0" {
			companyIDs[r.CompanyID] = struct{}{}
		}
	}
	out := map[string]string{}
	if len(companyIDs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(companyIDs))
	for id := range companyIDs {
		ids = append(ids, id)
	}
	var addrs []models.ContactAddress
	if err := ec.DB.Where("customer_id IN ?", ids).Find(&addrs).Error; err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if _, seen := out[a.CustomerID]; seen {
			continue
		}
		parts := []string{a.Street, strings.TrimSpace(fmt.Sprintf("%s, %s %s", a.City, a.State, a.Zip)), a.Country}
		var lines []string
		for _, p := range parts {
			if strings.Trim(p, ", ") != "" {
				lines = append(lines, p)
			}
		}
		out[a.CustomerID] = strings.Join(lines, "\n")
	}
	return out, nil
}

func (ec *ExportController) loadNextSteps(rows []models.Journey) (map[uint]string, error) {
	ids := journeyIDs(rows)
	out := map[uint]string{}
	if len(ids) == 0 {
		return out, nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, strconv.FormatUint(uint64(id), 10))
	}
	var notes []models.Note
	if err := ec.DB.Where("entity_type = ? AND entity_id IN ? AND type = ?", "Journey", strIDs, models.NoteTypeNextStep).
		Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, err
	}
	for _, n := range notes {
		id := utils.ParseUint(n.EntityID)
		out[id] = appendLine(out[id], n.Body)
	}
	return out, nil
}

func journeyIDs(rows []models.Journey) []uint {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func appendLine(existing, line string) string {
	if line == "" {
		return existing
	}
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
