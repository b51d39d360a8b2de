package controller

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salespipe/models"
	"salespipe/pipeline"
	"salespipe/utils"
)

type TagController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTagController(db *gorm.DB, logger *log.Logger) *TagController {
	return &TagController{
		DB:     db,
		Logger: logger,
	}
}

// LoadTagIndex builds the in-memory journey tag index used by tag:
// search. Descriptions are upper-cased once here so matching is a
// plain substring check.
func LoadTagIndex(db *gorm.DB) (pipeline.TagIndex, error) {
	var tags []models.Tag
	if err := db.Where("parent_table = ?", "Journey").Find(&tags).Error; err != nil {
		return nil, err
	}
	idx := pipeline.TagIndex{}
	for _, t := range tags {
		idx[t.ParentID] = append(idx[t.ParentID], strings.ToUpper(t.Description))
	}
	return idx, nil
}

// GetTags returns tags for a parent record.
func (tc *TagController) GetTags(c *fiber.Ctx) error {
	parentTable := c.Query("parentTable", "Journey")
	parentID := c.Query("parentId")
	if parentID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "parentId is required", nil)
	}

	var tags []models.Tag
	if err := tc.DB.Where("parent_table = ? AND parent_id = ?", parentTable, parentID).
		Order("created_at ASC").Find(&tags).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tags", err)
	}
	return c.JSON(utils.SuccessResponse(tags))
}

// CreateTag attaches a tag to a parent record. Duplicate descriptions
// on the same parent are rejected.
func (tc *TagController) CreateTag(c *fiber.Ctx) error {
	employee := c.Locals("employee").(*models.Employee)

	var input struct {
		ParentTable string `json:"parentTable" validate:"required,max=50"`
		ParentID    string `json:"parentId" validate:"required,max=50"`
		Description string `json:"description" validate:"required,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.Tag
	err := tc.DB.Where("parent_table = ? AND parent_id = ? AND UPPER(description) = ?",
		input.ParentTable, input.ParentID, strings.ToUpper(input.Description)).
		First(&existing).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Tag already exists", nil)
	}

	tag := models.Tag{
		ParentTable: input.ParentTable,
		ParentID:    input.ParentID,
		Description: input.Description,
		CreatedBy:   employee.Initials,
	}
	if err := tc.DB.Create(&tag).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create tag", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(tag))
}

// DeleteTag removes a tag.
func (tc *TagController) DeleteTag(c *fiber.Ctx) error {
	if err := tc.DB.Delete(&models.Tag{}, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete tag", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
