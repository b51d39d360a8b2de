package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/pipeline"
	"salespipe/utils"
)

type JourneyController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Sources *pipeline.Sources
}

func NewJourneyController(db *gorm.DB, logger *log.Logger, sources *pipeline.Sources) *JourneyController {
	return &JourneyController{
		DB:      db,
		Logger:  logger,
		Sources: sources,
	}
}

// GetJourneys returns a filtered, sorted, paginated page of normalized
// journeys. Filters arrive as one JSON query param so saved presets
// replay verbatim.
func (jc *JourneyController) GetJourneys(c *fiber.Ctx) error {
	var filters pipeline.FilterState
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filters parameter", err)
		}
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	if limit > 100 {
		limit = 100
	}
	sortField := c.Query("sort", "updatedAt")
	sortDir := c.Query("direction", "desc")

	tags, err := jc.loadTagIndex()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load tags", err)
	}

	journeys, total, err := jc.Sources.RefreshList(c.Context(), filters, tags, sortField, sortDir, page, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journeys", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  journeys,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetKanban returns one kanban batch plus the derived stage buckets and
// header totals.
func (jc *JourneyController) GetKanban(c *fiber.Ctx) error {
	var filters pipeline.FilterState
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filters parameter", err)
		}
	}
	batch, _ := strconv.Atoi(c.Query("batch", strconv.Itoa(pipeline.DefaultKanbanBatch)))
	sortField := c.Query("sort", "updatedAt")
	sortDir := c.Query("direction", "desc")

	tags, err := jc.loadTagIndex()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load tags", err)
	}

	journeys, total, err := jc.Sources.RefreshKanban(c.Context(), filters, tags, sortField, sortDir, batch)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journeys", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"journeys":      journeys,
		"buckets":       pipeline.DeriveBuckets(journeys),
		"stages":        pipeline.Stages,
		"total":         total,
		"batch":         pipeline.NormalizeKanbanBatch(batch),
		"totalValue":    pipeline.TotalValue(journeys),
		"weightedValue": pipeline.WeightedValue(journeys),
	}))
}

// GetJourney returns a single journey, raw row plus normalized view.
func (jc *JourneyController) GetJourney(c *fiber.Ctx) error {
	var journey models.Journey
	if err := jc.DB.First(&journey, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"journey":    journey,
		"normalized": pipeline.Adapt(journey),
	}))
}

// CreateJourney creates a new journey
func (jc *JourneyController) CreateJourney(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)

	var input struct {
		ProjectName   string  `json:"Project_Name" validate:"required,max=200"`
		TargetAccount string  `json:"Target_Account" validate:"omitempty,max=200"`
		JourneyStage  string  `json:"Journey_Stage" validate:"omitempty,max=100"`
		JourneyValue  float64 `json:"Journey_Value" validate:"omitempty,gte=0"`
		Priority      string  `json:"Priority" validate:"omitempty,max=20"`
		RSM           string  `json:"RSM" validate:"omitempty,max=50"`
		CompanyID     string  `json:"Company_ID"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	stage := input.JourneyStage
	if stage == "" {
		stage = pipeline.StageLabel(pipeline.StageLead)
	}
	rsm := input.RSM
	if rsm == "" {
		rsm = employee.Initials
	}

	journey := models.Journey{
		ProjectName:   input.ProjectName,
		TargetAccount: input.TargetAccount,
		JourneyStage:  stage,
		JourneyValue:  input.JourneyValue,
		Priority:      input.Priority,
		RSM:           rsm,
		CompanyID:     input.CompanyID,
		CreateDT:      time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := jc.DB.Create(&journey).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create journey", err)
	}

	jc.logAction(journey.ID, "Journey created", employee.Initials)

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(pipeline.Adapt(journey)))
}

// Columns the autosave PATCH may touch.
var patchableColumns = map[string]bool{
	"Project_Name": true, "Target_Account": true, "Journey_Type": true,
	"Journey_Value": true, "Journey_Status": true, "Priority": true,
	"Lead_Source": true, "Equipment_Type": true, "Quote_Type": true,
	"Quote_Number": true, "Qty_of_Items": true, "Industry": true,
	"Dealer": true, "Notes": true, "RSM": true, "RSM_Territory": true,
	"Action_Date": true, "Journey_Start_Date": true,
	"Quote_Presentation_Date": true, "Expected_Decision_Date": true,
	"Date_PO_Received": true, "Date_Lost": true,
	"Chance_To_Secure_order": true, "Company_ID": true,
}

// UpdateJourney applies a batched field patch and echoes back the
// recalculated derived fields so the editor can merge them in. Stage
// changes go through UpdateStage instead so they hit the audit trail.
func (jc *JourneyController) UpdateJourney(c *fiber.Ctx) error {
	journeyID := utils.ParseUint(c.Params("id"))

	var journey models.Journey
	if err := jc.DB.First(&journey, journeyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}

	var changes map[string]interface{}
	if err := c.BodyParser(&changes); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	updates := map[string]interface{}{}
	for col, v := range changes {
		if patchableColumns[col] {
			updates[col] = v
		}
	}
	if len(updates) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No updatable fields in request", nil)
	}

	if err := jc.DB.Model(&journey).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update journey", err)
	}
	if err := jc.DB.First(&journey, journeyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reload journey", err)
	}

	normalized := pipeline.Adapt(journey)
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"journey": journey,
		"calculated": fiber.Map{
			"stage":         normalized.Stage,
			"confidence":    normalized.Confidence,
			"closeDate":     normalized.CloseDate,
			"weightedValue": normalized.Value * pipeline.StageWeight(normalized.Stage),
		},
	}))
}

// UpdateStage moves a journey to another pipeline stage. The canonical
// label is written over the free-text column, and the audit line plus
// LastActivity note are fired off without blocking the response; the
// move succeeds even if the bookkeeping writes fail.
func (jc *JourneyController) UpdateStage(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)
	journeyID := utils.ParseUint(c.Params("id"))

	var input struct {
		Stage int `json:"stage" validate:"required,min=1,max=6"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var journey models.Journey
	if err := jc.DB.First(&journey, journeyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}

	oldLabel := pipeline.StageLabel(pipeline.Classify(journey.JourneyStage))
	newLabel := pipeline.StageLabel(input.Stage)

	if err := jc.DB.Model(&journey).Update("Journey_Stage", newLabel).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", err)
	}
	journey.JourneyStage = newLabel

	if oldLabel != newLabel {
		action := fmt.Sprintf("Journey_Stage: FROM %s TO %s", oldLabel, newLabel)
		go jc.logAction(journeyID, action, employee.Initials)
		go jc.stampLastActivity(journeyID, action, employee.Initials)
	}

	return c.JSON(utils.SuccessResponse(pipeline.Adapt(journey)))
}

// ToggleDisabled flips the soft-disable flag. Journeys are never
// physically deleted.
func (jc *JourneyController) ToggleDisabled(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)
	journeyID := utils.ParseUint(c.Params("id"))

	var journey models.Journey
	if err := jc.DB.First(&journey, journeyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}

	next := 1
	action := "Journey disabled"
	if journey.DeletedAt != 0 {
		next = 0
		action = "Journey re-enabled"
	}
	if err := jc.DB.Model(&journey).Update("deletedAt", next).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to toggle journey", err)
	}
	journey.DeletedAt = next

	go jc.logAction(journeyID, action, employee.Initials)

	return c.JSON(utils.SuccessResponse(fiber.Map{"id": journey.ID, "disabled": next == 1}))
}

// GetRSMs returns the distinct RSM codes present in the journey table,
// for the RSM filter dropdown.
func (jc *JourneyController) GetRSMs(c *fiber.Ctx) error {
	var rsms []string
	if err := jc.DB.Model(&models.Journey{}).
		Distinct(`"RSM"`).
		Where(`"RSM" <> ''`).
		Order(`"RSM" ASC`).
		Pluck("RSM", &rsms).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch RSMs", err)
	}
	return c.JSON(utils.SuccessResponse(rsms))
}

// GetLogs returns the audit trail for a journey, newest first.
func (jc *JourneyController) GetLogs(c *fiber.Ctx) error {
	var logs []models.JourneyLog
	if err := jc.DB.Where(`"Jrn_ID" = ?`, utils.ParseUint(c.Params("id", c.Query("journeyId")))).
		Order(`"CreateDtTm" DESC`).
		Find(&logs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch journey logs", err)
	}
	return c.JSON(utils.SuccessResponse(logs))
}

// CreateLog appends an arbitrary audit line, the write half of the
// legacy Journey_Log endpoint.
func (jc *JourneyController) CreateLog(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)

	var input struct {
		JrnID  uint   `json:"Jrn_ID" validate:"required"`
		Action string `json:"Action" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var journey models.Journey
	if err := jc.DB.First(&journey, input.JrnID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}

	jc.logAction(input.JrnID, input.Action, employee.Initials)
	return c.SendStatus(fiber.StatusCreated)
}

func (jc *JourneyController) loadTagIndex() (pipeline.TagIndex, error) {
	return LoadTagIndex(jc.DB)
}

func (jc *JourneyController) logAction(journeyID uint, action, initials string) {
	LogJourneyAction(jc.DB, jc.Logger, journeyID, action, initials)
}

func (jc *JourneyController) stampLastActivity(journeyID uint, body, initials string) {
	StampLastActivity(jc.DB, jc.Logger, journeyID, body, initials)
}
