package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/database"
	"dealflow/internal/handlers"
	"dealflow/internal/jobs"
	"dealflow/internal/logging"
	"dealflow/internal/middleware"
	"dealflow/internal/services"
	"dealflow/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Dealflow Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Initialize MongoDB. Without it the server runs on in-memory stores,
	// which is acceptable only for development.
	var mongoDB *database.MongoDB
	var taskStore services.TaskStore
	var profileStore services.ProfileStore

	if cfg.MongoURI != "" {
		log.Println("🔗 Connecting to MongoDB...")
		var err error
		mongoDB, err = database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Close(context.Background())

		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mongoDB.Initialize(initCtx); err != nil {
			cancel()
			log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
		}
		cancel()

		taskStore = services.NewMongoTaskStore(mongoDB)
		profileStore = services.NewMongoProfileStore(mongoDB)
	} else {
		if os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ MONGODB_URI is required in production")
		}
		log.Println("⚠️ MONGODB_URI not set - using in-memory stores (development only, data is not persisted)")
		taskStore = services.NewMemoryTaskStore()
		profileStore = services.NewMemoryProfileStore()
	}

	// Initialize Redis (optional - serializes profile ingestion across instances)
	var redisService *services.RedisService
	var ingestLock services.IngestLock
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (falling back to in-process ingest lock)", err)
		} else {
			defer redisService.Close()
			ingestLock = services.NewRedisIngestLock(redisService.Client())
		}
	}
	if ingestLock == nil {
		ingestLock = services.NewLocalIngestLock()
	}

	// Load objection-signal phrase list
	signals, err := config.LoadSignals(cfg.SignalsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load signals config: %v", err)
	}
	log.Printf("📋 Loaded %d objection-signal definitions", len(signals.Signals))

	// Initialize metrics
	services.InitMetrics()

	// Initialize services
	taskService := services.NewTaskService(taskStore)
	collectionService := services.NewTaskCollectionService(taskStore)
	contextService := services.NewSellerContextService(
		profileStore, signals, ingestLock,
		time.Duration(cfg.PromptCacheTTL)*time.Second,
	)
	log.Println("✅ Core services initialized")

	// Initialize JWT auth
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ JWT auth initialized")
	} else if os.Getenv("ENVIRONMENT") == "production" {
		log.Fatal("❌ JWT_SECRET is required in production")
	} else {
		log.Println("⚠️ JWT_SECRET not set - auth disabled (development mode only)")
	}

	// Snooze wake sweep: restores snoozed tasks whose wake time has passed
	scheduler := jobs.NewJobScheduler()
	if cfg.SnoozeWakeEnabled {
		wakeJob, err := jobs.NewSnoozeWakeJob(taskStore, taskService, cfg.SnoozeWakeCron)
		if err != nil {
			log.Fatalf("❌ Failed to create snooze wake job: %v", err)
		}
		scheduler.Register("snooze_wake", wakeJob)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dealflow v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    5 * 1024 * 1024, // guidance payloads and attachment summaries stay small
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("dealflow")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	taskHandler := handlers.NewTaskHandler(taskService, collectionService, contextService)
	profileHandler := handlers.NewProfileHandler(contextService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api/v1", middleware.LocalAuthMiddleware(jwtAuth, cfg))

	api.Post("/tasks", taskHandler.CreateTask)
	api.Get("/tasks/daily", taskHandler.DailyView)
	api.Get("/tasks/archived", taskHandler.ArchivedView)
	api.Get("/tasks/:id", taskHandler.GetTask)
	api.Post("/tasks/:id/start", taskHandler.StartTask)
	api.Post("/tasks/:id/complete", taskHandler.CompleteTask)
	api.Post("/tasks/:id/skip", taskHandler.SkipTask)
	api.Post("/tasks/:id/dismiss", taskHandler.DismissTask)
	api.Post("/tasks/:id/snooze", taskHandler.SnoozeTask)
	api.Post("/tasks/:id/restore", taskHandler.RestoreTask)

	api.Get("/profile", profileHandler.GetProfile)
	api.Get("/profile/prompt-context", profileHandler.GetPromptContext)
	api.Put("/profile/context", profileHandler.UpdateCustomContext)

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()
	log.Printf("✅ Dealflow server listening on port %s", cfg.Port)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
	log.Println("✅ Server stopped")
}
