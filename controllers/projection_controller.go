package controller

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/pipeline"
	"salespipe/utils"
)

type ProjectionController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Sources *pipeline.Sources
}

func NewProjectionController(db *gorm.DB, logger *log.Logger, sources *pipeline.Sources) *ProjectionController {
	return &ProjectionController{
		DB:      db,
		Logger:  logger,
		Sources: sources,
	}
}

// GetProjections rolls the filtered pipeline up into monthly expected
// revenue. Projections run over the baseline snapshot so the view is
// cheap to re-render as filters change.
func (pc *ProjectionController) GetProjections(c *fiber.Ctx) error {
	var filters pipeline.FilterState
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filters parameter", err)
		}
	}
	months, _ := strconv.Atoi(c.Query("months", "12"))

	baseline, _, loading := pc.Sources.Baseline.Snapshot()
	if len(baseline) == 0 && !loading {
		if err := pc.Sources.RefreshBaseline(c.Context()); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load baseline", err)
		}
		baseline, _, _ = pc.Sources.Baseline.Snapshot()
	}

	tags, err := LoadTagIndex(pc.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load tags", err)
	}

	now := time.Now()
	matched := pipeline.ApplyFilters(baseline, filters, tags)
	projections, unscheduled := pipeline.ProjectByMonth(matched, now)
	projections = pipeline.ProjectionWindow(projections, now, months)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"months":           projections,
		"unscheduledValue": unscheduled,
		"totalValue":       pipeline.TotalValue(matched),
		"weightedValue":    pipeline.WeightedValue(matched),
		"journeyCount":     len(matched),
	}))
}
