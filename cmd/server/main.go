package main

import (
	"context"
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
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/scheduler"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/robfig/cron"
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

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewScheduledPostRepository(db)
	connectionRepo := repository.NewSocialConnectionRepository(db)
	publishingLogRepo := repository.NewPublishingLogRepository(db)
	analyticsRepo := repository.NewPostingAnalyticsRepository(db)
	settingsRepository := repository.NewSettingsRepository(db)

	r2Service := service.NewR2Service(*cfg)
	connectionService := service.NewConnectionService(*cfg, connectionRepo)
	postService := service.NewPostService(db, postRepo, connectionRepo, publishingLogRepo)
	analyticsService := service.NewAnalyticsService(postRepo, analyticsRepo)
	settingsService := service.NewSettingsService(settingsRepository)

	registry := publisher.NewRegistry(
		publisher.NewWordpressPublisher(r2Service),
		publisher.NewFacebookPublisher(r2Service),
		publisher.NewTwitterPublisher(),
		publisher.NewLinkedinPublisher(),
		publisher.NewInstagramPublisher(r2Service),
	)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/cancel", post.CancelPost)
	api.Get("/posts/history", post.PostHistory)

	connection := handlers.NewConnectionHandler(connectionService)
	api.Get("/connections", connection.ListConnections)
	api.Post("/connections/remove", connection.RemoveConnection)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Get("/analytics", analytics.GetPostAnalytics)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(connectionRepo, connectionService)
	analyticsJob := job.NewAnalyticsSyncJob(cfg.Scheduler, analyticsRepo, settingsService, client)

	//queue
	queueW := queue.NewQueue(analyticsRepo, postRepo, connectionRepo, connectionService, registry)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h30m00s", analyticsJob.EnqueueStale)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default":            6,
				queue.QueueAnalytics: 1,
			},
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeAnalyticsSync, queueW.HandleAnalyticsSyncTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	dispatcher := scheduler.New(
		cfg.Scheduler,
		postRepo,
		connectionRepo,
		publishingLogRepo,
		analyticsRepo,
		settingsService,
		connectionService,
		registry,
	)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go dispatcher.Run(schedulerCtx)

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db, stopScheduler)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, stopScheduler context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	stopScheduler()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
