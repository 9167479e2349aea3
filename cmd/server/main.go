package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/princeprakhar/travel-review-backend/internal/api/routes"
	"github.com/princeprakhar/travel-review-backend/internal/config"
	"github.com/princeprakhar/travel-review-backend/internal/database"
	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/storage"
	"github.com/princeprakhar/travel-review-backend/internal/storage/memory"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: ", err)
	}
	production := cfg.Environment == "production"

	// Initialize database
	db, err := database.Init(cfg.DatabaseURL, production)
	if err != nil {
		logger.Fatal("Failed to initialize database: ", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	backend, err := newStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize object storage: ", err)
	}
	breakerCfg := storage.DefaultBreakerConfig("object-storage")
	breakerCfg.StateGauge = m.StorageBreaker
	store := storage.WithCircuitBreaker(backend, breakerCfg)

	// Validate already checked the zone name.
	location, _ := time.LoadLocation(cfg.ReaperTimezone)

	imageService := services.NewImageService(db, store, services.ImageConfig{
		AllowedExtensions: cfg.AllowedExtensions,
		MaxUploadSize:     cfg.MaxUploadSize,
		UploadTimeout:     cfg.UploadTimeout,
		ReaperCutoff:      cfg.ReaperCutoff,
		Location:          location,
	}, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reaper := services.NewReaper(imageService, cfg.ReaperInterval)
	reaper.Start(ctx)

	// Set Gin mode
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadSize

	// Setup routes
	routes.SetupRoutes(router, db, cfg, imageService, m, prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting on port " + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	reaper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: ", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Server exited")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory object storage; uploaded images are lost on restart")
		return memory.New(cfg.BucketName, cfg.StorageHost), nil
	default:
		return storage.NewS3Storage(storage.S3Config{
			Region:    cfg.AWSRegion,
			Bucket:    cfg.BucketName,
			Host:      cfg.StorageHost,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	}
}
