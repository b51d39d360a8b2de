package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/utils"
)

type NoteController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewNoteController(db *gorm.DB, logger *log.Logger) *NoteController {
	return &NoteController{
		DB:     db,
		Logger: logger,
	}
}

// GetNotes returns notes for an entity, optionally narrowed by type,
// newest first.
func (nc *NoteController) GetNotes(c *fiber.Ctx) error {
	entityType := c.Query("entityType", "Journey")
	entityID := c.Query("entityId")
	if entityID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "entityId is required", nil)
	}

	q := nc.DB.Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if noteType := c.Query("type"); noteType != "" {
		q = q.Where("type = ?", noteType)
	}

	var notes []models.Note
	if err := q.Order("created_at DESC").Find(&notes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch notes", err)
	}
	return c.JSON(utils.SuccessResponse(notes))
}

// CreateNote creates a note, next step, or activity stamp.
func (nc *NoteController) CreateNote(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)

	var input struct {
		EntityType string     `json:"entityType" validate:"required,max=50"`
		EntityID   string     `json:"entityId" validate:"required,max=50"`
		Type       string     `json:"type" validate:"omitempty,oneof=note nextstep LastActivity"`
		Body       string     `json:"body" validate:"required"`
		DueDate    *time.Time `json:"dueDate"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Type == "" {
		input.Type = models.NoteTypeNote
	}

	note := models.Note{
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Type:       input.Type,
		Body:       input.Body,
		CreatedBy:  employee.Initials,
		DueDate:    input.DueDate,
	}
	if err := nc.DB.Create(&note).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create note", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(note))
}

// CompleteNote marks a next step done.
func (nc *NoteController) CompleteNote(c *fiber.Ctx) error {
	var note models.Note
	if err := nc.DB.First(&note, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Note not found", nil)
	}
	if err := nc.DB.Model(&note).Update("completed", true).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update note", err)
	}
	note.Completed = true
	return c.JSON(utils.SuccessResponse(note))
}

// DeleteNote removes a note.
func (nc *NoteController) DeleteNote(c *fiber.Ctx) error {
	if err := nc.DB.Delete(&models.Note{}, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete note", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
