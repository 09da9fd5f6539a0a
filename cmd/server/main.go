package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/api"
	"github.com/maheshrc27/postpilot/internal/api/handlers"
	"github.com/maheshrc27/postpilot/internal/api/middleware"
	"github.com/maheshrc27/postpilot/internal/generate"
	job "github.com/maheshrc27/postpilot/internal/jobs"
	"github.com/maheshrc27/postpilot/internal/lock"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/maheshrc27/postpilot/internal/queue"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.LoadConfig()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	cipher, err := utils.NewTokenCipher(cfg.SecretKey)
	if err != nil {
		log.Fatalf("Invalid SECRET_KEY: %v", err)
	}

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	preferencesRepo := repository.NewPreferencesRepository(db)
	postRepo := repository.NewPostRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)

	httpClient := platform.NewHTTPClient()
	registry := platform.NewRegistry(cipher,
		platform.NewFacebook(httpClient),
		platform.NewInstagram(httpClient),
		platform.NewLinkedin(httpClient),
		platform.NewTiktok(httpClient),
		platform.NewYoutube(httpClient),
	)
	oauth := platform.NewOAuth(cfg, httpClient)

	credentialService := service.NewCredentialService(socialAccountRepo, oauth, cipher, lock.NewRedisLocker(rdb))
	dispatcher := publish.NewDispatcher(registry, credentialService, cfg.Dispatch.PublishTimeout)
	fanout := publish.NewFanout(dispatchRepo, socialAccountRepo, dispatcher, cfg.Dispatch.Concurrency)
	scheduler := queue.NewScheduler(client, inspector)

	textBackend, err := generate.NewOpenAIText(cfg.OpenAI)
	if err != nil {
		log.Fatalf("Failed to configure text generation: %v", err)
	}
	generator := generate.NewService(textBackend, generate.NewOpenAIImage(cfg.OpenAI, httpClient))

	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	authService := service.NewAuthService(cfg, userRepo, preferencesRepo, apiKeyService)
	userService := service.NewUserService(userRepo, preferencesRepo)
	platformService := service.NewPlatformService(cfg.SecretKey, oauth, registry, socialAccountRepo, cipher)
	postService := service.NewPostService(db, postRepo, targetRepo, socialAccountRepo, mediaAssetRepo, postMediaRepo, r2Service, scheduler, fanout)

	app := api.NewApp()
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	api.Register(app, &api.Handlers{
		Auth:     handlers.NewAuthHandler(cfg, authService),
		User:     handlers.NewUserHandler(userService),
		Keys:     handlers.NewApiKeyHandler(apiKeyService),
		Platform: handlers.NewPlatformHandler(platformService, cfg.FrontendURL),
		Post:     handlers.NewPostHandler(postService),
		Generate: handlers.NewGenerateHandler(generator),
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Middleware: middleware.NewAuthMiddleware(cfg.CookieName, authService),
	})

	// cron jobs
	jobs := job.NewManager(ctx)
	if err := jobs.Add("@every 1m", "due_posts", job.NewDuePostsJob(postRepo, fanout)); err != nil {
		log.Fatalf("Failed to register job: %v", err)
	}
	if err := jobs.Add("@every 10m", "token_refresh", job.NewTokenRefreshJob(socialAccountRepo, credentialService)); err != nil {
		log.Fatalf("Failed to register job: %v", err)
	}
	jobs.Start()

	// queue
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Dispatch.QueueConcurrency,
		Logger:      queue.NewLogger(),
	})
	mux := asynq.NewServeMux()
	queue.NewWorker(fanout).Register(mux)

	go func() {
		slog.Info("starting the asynq server")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.ListenAddr)

	gracefulShutdown(app, server, jobs, stop)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server, jobs *job.Manager, stop context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "err", err)
	}
	server.Shutdown()
	jobs.Stop()
	stop()

	slog.Info("server shutdown complete")
}
