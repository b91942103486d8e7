package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/qaforge/backend/internal/api/handlers"
	"github.com/qaforge/backend/internal/cache"
	"github.com/qaforge/backend/internal/classifier"
	"github.com/qaforge/backend/internal/metrics"
	"github.com/qaforge/backend/internal/middleware/ratelimit"
	"github.com/qaforge/backend/internal/middleware/security"
	"github.com/qaforge/backend/internal/middleware/validation"
	"github.com/qaforge/backend/internal/processor"
	"github.com/qaforge/backend/internal/storage"
	"github.com/qaforge/backend/internal/storage/memory"
	s3store "github.com/qaforge/backend/internal/storage/s3"
	"github.com/qaforge/backend/pkg/config"
	appLogger "github.com/qaforge/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting QA classification API server")

	metrics.Init()

	store, err := buildStore(cfg)
	if err != nil {
		appLogger.Fatal("Failed to create object store", zap.Error(err))
	}

	classificationCache, err := buildCache(cfg)
	if err != nil {
		appLogger.Fatal("Failed to create classification cache", zap.Error(err))
	}

	backends := make([]classifier.Backend, 0, len(cfg.Ensemble.Backends))
	for _, b := range cfg.Ensemble.Backends {
		backends = append(backends, classifier.NewChatBackend(classifier.BackendOptions{
			Name:        b.Name,
			Model:       b.Model,
			APIKey:      cfg.Ensemble.APIKey,
			BaseURL:     cfg.Ensemble.BaseURL,
			Temperature: cfg.Ensemble.Temperature,
			MaxTokens:   cfg.Ensemble.MaxTokens,
			Timeout:     time.Duration(cfg.Ensemble.TimeoutSec) * time.Second,
			JSONMode:    b.JSONMode,
		}))
	}

	ensemble, err := classifier.NewEnsemble(backends, classificationCache)
	if err != nil {
		appLogger.Fatal("Failed to create ensemble", zap.Error(err))
	}

	batchProcessor := processor.NewProcessor(store, ensemble, cfg.Reward.CurrentStage)
	qaHandler := handlers.NewQAHandler(store, batchProcessor)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(security.Headers())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
		Logger:      appLogger.GetLogger(),
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	api := app.Group("/api/v1")

	api.Post("/qa/submit", limiter.Middleware(), qaHandler.Submit)
	api.Post("/qa/process", limiter.Middleware(), qaHandler.Process)
	api.Get("/qa/list", qaHandler.List)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func buildStore(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		appLogger.Warn("Using in-memory object store; submissions will not survive a restart")
		return memory.NewStore(), nil
	case "r2", "":
		return s3store.NewClient(
			context.Background(),
			cfg.Storage.AccountID,
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
			cfg.Storage.Bucket,
		)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisCache(
			cfg.Cache.Host,
			cfg.Cache.Port,
			cfg.Cache.Password,
			cfg.Cache.DB,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
		)
	case "memory", "":
		return cache.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
