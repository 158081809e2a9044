package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/api"
	"github.com/maheshrc27/walk-gallery/internal/api/handlers"
	"github.com/maheshrc27/walk-gallery/internal/api/middleware"
	"github.com/maheshrc27/walk-gallery/internal/database"
	job "github.com/maheshrc27/walk-gallery/internal/jobs"
	"github.com/maheshrc27/walk-gallery/internal/poem"
	"github.com/maheshrc27/walk-gallery/internal/queue"
	"github.com/maheshrc27/walk-gallery/internal/repository"
	"github.com/maheshrc27/walk-gallery/internal/service"
	"github.com/maheshrc27/walk-gallery/internal/session"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app := newApp()

	if err := cfg.Validate(); err != nil {
		log.Printf("Configuration error, serving the static gallery only: %v", err)
		registerFallback(app, cfg)
		listen(app, cfg.Port)
		gracefulShutdown(app, func() {})
		return
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.DBTimeout)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// An unreachable database is transient: serve anyway, with the gallery
	// answering 503 and commits held pending, until the schema lands.
	ctx, cancel := context.WithTimeout(appCtx, 3*cfg.DBTimeout)
	err = database.Migrate(ctx, db)
	cancel()
	switch {
	case errors.Is(err, database.ErrUnavailable):
		log.Printf("Warning: database is unreachable, retrying in the background: %v", err)
		go func() {
			if err := database.MigrateUntilReady(appCtx, db, migrateRetryInterval); err != nil {
				if appCtx.Err() == nil {
					log.Printf("Failed to apply schema: %v", err)
				}
				return
			}
			log.Println("Database schema applied")
		}()
	case err != nil:
		closeDB(db)
		log.Fatalf("Failed to apply schema: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	poemRepo := repository.NewPoemRepository(db)
	cachedPosts := repository.NewCachedPostRepository(postRepo, cfg.PostCacheTTL)

	var uploader service.Uploader
	if cfg.MediaStorage == config.MediaStorageR2 {
		uploader = service.NewR2Service(*cfg)
	}
	mediaService := service.NewMediaService(uploader)

	generator, err := newGenerator(cfg.Generation)
	if err != nil {
		closeDB(db)
		log.Fatalf("Failed to create poem generator: %v", err)
	}
	gate := poem.NewGate(
		poem.NewMemoizer(poemRepo),
		poem.NewRateLimiter(cfg.Generation.Cooldown),
		generator,
		cfg.Generation.Timeout,
	)

	relay := session.NewRelay(postRepo, cachedPosts, cfg.FailureThreshold)
	workflow := session.NewWorkflow(mediaService, relay, session.PolicyFromConfig(cfg.Steps))
	registry := session.NewRegistry(session.DefaultIdleTTL)

	var client *asynq.Client
	var worker *asynq.Server
	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client = asynq.NewClient(redisConn)
		relay.WithRescuer(queue.NewRescuer(client))

		worker = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 2,
		})
		queueW := queue.NewQueue(cachedPosts)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeRescuePost, queueW.HandleRescuePostTask)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := worker.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	} else {
		log.Println("Warning: REDIS_URI not set, stranded posts stay with their session")
	}

	api.Register(app,
		middleware.NewSessionMiddleware(*cfg, registry, relay),
		handlers.NewSessionHandler(*cfg, workflow, relay),
		handlers.NewGalleryHandler(*cfg, cachedPosts, gate),
	)
	app.Static("/snapshot", cfg.SnapshotPath)

	// cron jobs
	snapshotJob := job.NewSnapshotJob(service.NewSnapshotService(cachedPosts, gate), registry, cfg.SnapshotPath)
	go snapshotJob.WriteSnapshot()

	c := cron.New()
	if err := c.AddFunc(cfg.SnapshotSchedule, snapshotJob.WriteSnapshot); err != nil {
		log.Fatalf("Invalid SNAPSHOT_SCHEDULE: %v", err)
	}
	c.AddFunc("@every 00h10m00s", snapshotJob.SweepSessions)
	c.Start()

	listen(app, cfg.Port)

	gracefulShutdown(app, func() {
		stop()
		c.Stop()
		if worker != nil {
			worker.Shutdown()
		}
		if client != nil {
			client.Close()
		}
		closeDB(db)
	})
}

const migrateRetryInterval = 30 * time.Second

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    30 * 1024 * 1024, // 30 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	return app
}

func newGenerator(c config.Generation) (poem.Generator, error) {
	switch c.Provider {
	case config.ProviderArk:
		return service.NewArkService(context.Background(), c)
	default:
		return service.NewOpenAIService(c), nil
	}
}

// registerFallback serves the last exported gallery and answers every API
// call with the fallback message.
func registerFallback(app *fiber.App, cfg *config.Config) {
	app.Static("/snapshot", cfg.SnapshotPath)
	app.All("/api/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":  "The gallery is temporarily unavailable",
			"notice": cfg.FallbackMessage,
		})
	})
}

func listen(app *fiber.App, port string) {
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", port)
}

func closeDB(db *database.Gateway) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	cleanup()
	log.Println("Server shutdown complete.")
}
