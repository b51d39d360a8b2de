package routes

import (
	"log"
	"os"

	controller "salespipe/controllers"
	"salespipe/middleware"
	"salespipe/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, sources *pipeline.Sources, prefs *pipeline.Prefs) {
	// Initialize controllers with their respective loggers
	journeyController := controller.NewJourneyController(db, log.New(os.Stdout, "JOURNEY: ", log.LstdFlags), sources)
	boardController := controller.NewBoardController(db, log.New(os.Stdout, "BOARD: ", log.LstdFlags), sources)
	noteController := controller.NewNoteController(db, log.New(os.Stdout, "NOTE: ", log.LstdFlags))
	tagController := controller.NewTagController(db, log.New(os.Stdout, "TAG: ", log.LstdFlags))
	preferenceController := controller.NewPreferenceController(log.New(os.Stdout, "PREFS: ", log.LstdFlags), prefs)
	exportController := controller.NewExportController(db, log.New(os.Stdout, "EXPORT: ", log.LstdFlags))
	projectionController := controller.NewProjectionController(db, log.New(os.Stdout, "PROJECTION: ", log.LstdFlags), sources)
	quoteController := controller.NewQuoteController(db, log.New(os.Stdout, "QUOTE: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Journey routes
	journey := api.Group("/journeys")
	journey.Get("/", journeyController.GetJourneys)
	journey.Get("/kanban", journeyController.GetKanban)
	journey.Get("/rsms", journeyController.GetRSMs)
	journey.Post("/", journeyController.CreateJourney)
	journey.Get("/:id", journeyController.GetJourney)
	journey.Patch("/:id", journeyController.UpdateJourney)
	journey.Patch("/:id/stage", journeyController.UpdateStage)
	journey.Post("/:id/toggle-disabled", journeyController.ToggleDisabled)
	journey.Get("/:id/logs", journeyController.GetLogs)
	journey.Get("/:id/quote-value", quoteController.GetQuoteValue)

	// Board session routes (server-side kanban drag surface)
	board := api.Group("/board/sessions")
	board.Post("/", boardController.CreateSession)
	board.Delete("/:sid", boardController.CloseSession)
	board.Post("/:sid/drag-start", boardController.DragStart)
	board.Post("/:sid/drag-over", boardController.DragOver)
	board.Post("/:sid/drag-end", boardController.DragEnd)
	board.Post("/:sid/drag-cancel", boardController.CancelDrag)
	board.Post("/:sid/move", boardController.MoveCard)

	// WebSocket route for board stage-move broadcasts
	app.Get("/ws/board/:sid", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		boardController.HandleBoardWS(c)
	}))

	// Note routes
	note := api.Group("/notes")
	note.Get("/", noteController.GetNotes)
	note.Post("/", noteController.CreateNote)
	note.Post("/:id/complete", noteController.CompleteNote)
	note.Delete("/:id", noteController.DeleteNote)

	// Tag routes
	tag := api.Group("/tags")
	tag.Get("/", tagController.GetTags)
	tag.Post("/", tagController.CreateTag)
	tag.Delete("/:id", tagController.DeleteTag)

	// Preference routes
	pref := api.Group("/preferences")
	pref.Get("/", preferenceController.GetPreferences)
	pref.Get("/presets", preferenceController.ListPresets)
	pref.Post("/presets", preferenceController.SavePreset)
	pref.Delete("/presets/:id", preferenceController.DeletePreset)
	pref.Put("/:key", preferenceController.SetPreference)
	pref.Delete("/:key", preferenceController.DeletePreference)

	// Projection routes
	api.Get("/projections", projectionController.GetProjections)

	// Export route with rate limiting
	api.Get("/export", middleware.ExportRateLimiter(), exportController.ExportJourneys)

	// Legacy-compatible aliases kept for clients still on the old
	// paths. Same handlers, same auth; only the URLs differ.
	legacy := app.Group("/api/legacy", middleware.Protected())
	legacy.Get("/base/Journey", journeyController.GetJourneys)
	legacy.Get("/base/Journey/:id", journeyController.GetJourney)
	legacy.Patch("/base/Journey/:id", journeyController.UpdateJourney)
	legacy.Get("/std/Journey_Log", journeyController.GetLogs)
	legacy.Post("/std/Journey_Log", journeyController.CreateLog)
	legacy.Get("/getrsms", journeyController.GetRSMs)
	legacy.Get("/quote-value", quoteController.GetQuoteValue)

	core := app.Group("/api/core", middleware.Protected())
	core.Get("/notes", noteController.GetNotes)
	core.Post("/notes", noteController.CreateNote)
	core.Get("/tags", tagController.GetTags)
	core.Post("/tags", tagController.CreateTag)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, sources *pipeline.Sources, prefs *pipeline.Prefs) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup API routes
	SetupAPIRoutes(app, db, sources, prefs)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
