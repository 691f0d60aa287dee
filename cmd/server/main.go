package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/sundayhq/sunday-scheduler/configs"
	"github.com/sundayhq/sunday-scheduler/internal/api/handlers"
	"github.com/sundayhq/sunday-scheduler/internal/api/middleware"
	job "github.com/sundayhq/sunday-scheduler/internal/jobs"
	"github.com/sundayhq/sunday-scheduler/internal/queue"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
	"github.com/sundayhq/sunday-scheduler/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return origin == cfg.FrontendURL
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	itemRepo := repository.NewItemRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	mediaService := service.NewMediaService(*cfg)
	publisherService := service.NewPublisherService(*cfg)
	dispatchService := service.NewDispatchService(itemRepo, targetRepo, attemptRepo, publisherService, mediaService, service.DefaultDispatchConfig())
	reconcileService := service.NewReconcileService(itemRepo)

	triggers := queue.NewTriggerRegistry(client, inspector)
	scheduleService := service.NewScheduleService(itemRepo, triggers)
	itemService := service.NewItemService(itemRepo, attemptRepo, mediaService, triggers)
	targetService := service.NewTargetService(*cfg, targetRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	// publisher worker reports results here, outside the user-auth surface
	callback := handlers.NewCallbackHandler(*cfg, reconcileService)
	app.Post("/callbacks/publish", callback.PublishCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	item := handlers.NewItemHandler(itemService)
	api.Post("/items/create", item.CreateItem)
	api.Get("/items", item.ListItems)
	api.Post("/items/remove", item.RemoveItem)
	api.Get("/attempts", item.ListAttempts)

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Post("/items/schedule", schedule.ScheduleItem)
	api.Post("/items/unschedule", schedule.UnscheduleItem)
	api.Post("/items/recover", schedule.RecoverItem)

	target := handlers.NewTargetHandler(targetService)
	api.Post("/targets/create", target.CreateTarget)
	api.Get("/targets", target.ListTargets)
	api.Post("/targets/remove", target.RemoveTarget)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	// periodic tick: reclaim stuck attempts, then dispatch due items
	tickJob := job.NewDispatchTickJob(dispatchService)

	c := cron.New()
	c.AddFunc("@every 0h1m0s", tickJob.Run)
	c.Start()

	// time triggers registered by the gateway fire through asynq
	queueW := queue.NewQueue(dispatchService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishTrigger, queueW.HandlePublishTriggerTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
