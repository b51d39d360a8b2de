package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/utils"
)

type QuoteController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQuoteController(db *gorm.DB, logger *log.Logger) *QuoteController {
	return &QuoteController{
		DB:     db,
		Logger: logger,
	}
}

// GetQuoteValue derives a journey's quote total from its line items.
// The stored Journey_Value is the negotiated figure; this is what the
// quote actually adds up to, shown alongside it.
func (qc *QuoteController) GetQuoteValue(c *fiber.Ctx) error {
	// The legacy route passes ?journeyId=, the REST route a path param.
	journeyID := utils.ParseUint(c.Params("id", c.Query("journeyId")))

	var journey models.Journey
	if err := qc.DB.First(&journey, journeyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Journey not found", nil)
	}

	var items []models.QuoteItem
	if err := qc.DB.Where(`"Jrn_ID" = ?`, journeyID).Order(`"ID" ASC`).Find(&items).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch quote items", err)
	}

	var total float64
	for _, item := range items {
		qty := item.Qty
		if qty < 1 {
			qty = 1
		}
		total += item.Price * float64(qty)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"journeyId":    journey.ID,
		"quoteNumber":  journey.QuoteNumber,
		"items":        items,
		"quoteValue":   total,
		"journeyValue": journey.JourneyValue,
	}))
}
