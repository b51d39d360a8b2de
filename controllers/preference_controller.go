package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"salespipe/models"
	"salespipe/pipeline"
	"salespipe/utils"
)

// Defaults returned when an employee has no stored value for a key.
var prefDefaults = map[string]interface{}{
	pipeline.PrefSearchTerm:    "",
	pipeline.PrefFilters:       pipeline.FilterState{},
	pipeline.PrefRSMFilter:     "",
	pipeline.PrefViewMode:      pipeline.ViewKanban,
	pipeline.PrefSortField:     "updatedAt",
	pipeline.PrefSortDirection: "desc",
	pipeline.PrefShowTags:      true,
	pipeline.PrefKanbanBatch:   pipeline.DefaultKanbanBatch,
	pipeline.PrefShowDisabled:  false,
	pipeline.PrefSavedPresets:  []pipeline.Preset{},
}

type PreferenceController struct {
	Logger *log.Logger
	Prefs  *pipeline.Prefs
}

func NewPreferenceController(logger *log.Logger, prefs *pipeline.Prefs) *PreferenceController {
	return &PreferenceController{
		Logger: logger,
		Prefs:  prefs,
	}
}

func employeeKey(c *fiber.Ctx) string {
	employee := c.Locals("employee").(*models.Employee)
	return strconv.FormatUint(uint64(employee.ID), 10)
}

// GetPreferences returns every known preference for the employee,
// falling back to defaults for anything unset or unreadable.
func (pc *PreferenceController) GetPreferences(c *fiber.Ctx) error {
	userID := employeeKey(c)

	out := fiber.Map{}
	for key, def := range prefDefaults {
		fallback, err := json.Marshal(def)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode defaults", err)
		}
		raw := pipeline.LoadPref(pc.Prefs, userID, key, json.RawMessage(fallback))
		if !json.Valid(raw) {
			raw = fallback
		}
		out[key] = json.RawMessage(raw)
	}
	return c.JSON(utils.SuccessResponse(out))
}

// SetPreference stores one preference value as given.
func (pc *PreferenceController) SetPreference(c *fiber.Ctx) error {
	key := c.Params("key")
	if _, known := prefDefaults[key]; !known {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown preference key", fmt.Errorf("key %q", key))
	}

	body := c.Body()
	if !json.Valid(body) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Preference value must be JSON", nil)
	}

	// Saves are best effort: a storage hiccup must not break the view,
	// so failures are logged and the request still succeeds.
	if err := pipeline.SavePref(pc.Prefs, employeeKey(c), key, json.RawMessage(body)); err != nil {
		pc.Logger.Printf("failed to save preference %s: %v", key, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"key": key}))
}

// DeletePreference resets one preference to its default.
func (pc *PreferenceController) DeletePreference(c *fiber.Ctx) error {
	key := c.Params("key")
	if _, known := prefDefaults[key]; !known {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown preference key", fmt.Errorf("key %q", key))
	}
	if err := pc.Prefs.DeletePref(employeeKey(c), key); err != nil {
		pc.Logger.Printf("failed to delete preference %s: %v", key, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPresets returns the employee's saved filter presets.
func (pc *PreferenceController) ListPresets(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(pc.Prefs.ListPresets(employeeKey(c))))
}

// SavePreset stores the current filter state under a name.
func (pc *PreferenceController) SavePreset(c *fiber.Ctx) error {
	var input struct {
		Name    string               `json:"name" validate:"required,max=100"`
		Filters pipeline.FilterState `json:"filters"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	preset, err := pc.Prefs.SavePreset(employeeKey(c), input.Name, input.Filters)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save preset", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(preset))
}

// DeletePreset removes a saved preset.
func (pc *PreferenceController) DeletePreset(c *fiber.Ctx) error {
	if err := pc.Prefs.DeletePreset(employeeKey(c), c.Params("id")); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete preset", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
