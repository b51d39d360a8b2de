package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"salespipe/config"
	"salespipe/middleware"
	"salespipe/pipeline"
	"salespipe/routes"
	"salespipe/utils"
	"salespipe/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "PIPELINE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Preference storage: redis when configured, in-memory otherwise
	var prefStore pipeline.Storage
	if config.AppConfig.Redis.Enabled {
		prefStore = middleware.NewRedisStorage(config.AppConfig.Redis)
	} else {
		prefStore = pipeline.NewMemoryStorage()
	}
	prefs := pipeline.NewPrefs(prefStore)

	// View sources over the journey table
	fetcher := &pipeline.GormFetcher{DB: config.DB}
	sources := pipeline.NewSources(fetcher, config.AppConfig.BaselineLimit)

	// Initialize and start the baseline snapshot worker
	snapshotWorker := worker.NewSnapshotWorker(
		sources,
		prefStore,
		config.AppConfig.SnapshotInterval,
		log.New(os.Stdout, "SNAPSHOT: ", log.LstdFlags),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go snapshotWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, sources, prefs)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// In development, mint a token for the seeded employee so the API
	// is exercisable without the identity service.
	if config.AppConfig.Environment == "development" {
		if token, err := utils.IssueJWTToken(1, 0); err == nil {
			logger.Printf("Development token (employee 1): %s", token)
		}
	}

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
