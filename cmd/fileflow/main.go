package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fileflow/fileflow/internal/config"
	"github.com/fileflow/fileflow/internal/handlers"
	"github.com/fileflow/fileflow/internal/middleware"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"
	"github.com/fileflow/fileflow/internal/services"
	"github.com/fileflow/fileflow/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := pkg.NewLogger(pkg.ParseLogLevel(cfg.LogLevel))

	mongodb, err := repository.Connect(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", map[string]interface{}{"error": err.Error()})
	}
	defer mongodb.Disconnect()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	storage, err := services.NewS3Provider(&services.StorageConfig{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", map[string]interface{}{"error": err.Error()})
	}

	repos := repository.NewRepositories(mongodb)
	validator := pkg.NewValidator()
	jwtManager := pkg.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.Issuer)

	queue := worker.NewQueue(repos.Job, logger,
		worker.NewChecksumHandler(repos.File, storage, logger),
		worker.NewOCRHandler(repos.File, storage, logger),
		worker.NewThumbnailHandler(repos.File, storage, logger),
	)
	queue.Start(cfg.Worker.Count)
	defer queue.Stop()

	cleanup := worker.NewCleanupWorker(repos.File, repos.User, storage, logger, worker.CleanupConfig{
		Interval:        cfg.Worker.CleanupInterval,
		UploadRetention: cfg.Worker.UploadRetention,
	})
	cleanup.Start()
	defer cleanup.Stop()

	authService := services.NewAuthService(repos.User, jwtManager, validator, logger)
	fileService := services.NewFileService(repos.File, repos.User, storage, queue, validator, logger,
		cfg.Storage.Bucket, cfg.Storage.MaxFileSize)
	folderService := services.NewFolderService(repos.Folder, repos.File, validator, logger)
	shareService := services.NewShareService(repos.Share, repos.File, repos.User, validator, logger)

	authMW := middleware.NewAuthMiddleware(jwtManager, repos.User, logger)
	limitMW := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		Enabled: cfg.RateLimit.Enabled,
		Limit:   cfg.RateLimit.Limit,
		Window:  cfg.RateLimit.Window,
	}, redisClient, logger)

	router := handlers.NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewFileHandler(fileService),
		handlers.NewFolderHandler(folderService),
		handlers.NewShareHandler(shareService),
		authMW,
		limitMW,
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(middleware.DefaultCORSConfig()),
	)
	router.Register(engine)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
