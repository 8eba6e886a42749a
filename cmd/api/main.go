/**
 * @description
 * Main entry point for the pricing API.
 * Loads configuration, connects the stores, warms the model and serves HTTP.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - backend/internal/config: Config loader
 * - backend/internal/db: Database connections
 * - backend/internal/services: Pricing service
 *
 * @notes
 * - The API starts without a trained model; /predict-price answers 503 until
 *   an artifact appears or a reload is requested.
 * - Reload requests published by the worker arrive over Redis.
 */

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yerevan-pricing/backend/internal/api"
	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/services"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Initialize Database Connections
	gdb, err := db.ConnectOptional(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}

	// 3. Services
	src, err := datasource.Open(cfg, gdb)
	if err != nil {
		logger.Fatal("Failed to open data source: %v", err)
	}
	pricingService := services.NewPricingService(src, redisClient, cfg.Model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := pricingService.EnsureLoaded(ctx); err != nil {
		if errors.Is(err, artifact.ErrModelUnavailable) {
			logger.Warn("No model at %s yet; predictions return 503 until one is trained", cfg.Model.ArtifactPath)
		} else {
			logger.Error("Model warm-up failed: %v", err)
		}
	}
	go pricingService.WatchReloads(ctx)

	// 4. Fiber App and Routes
	app := api.NewApp(cfg)
	api.SetupRoutes(app, gdb, pricingService)

	// 5. Graceful Shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down API...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Error during shutdown: %v", err)
		}
	}()

	// 6. Start Server
	logger.Info("🚀 Starting pricing API on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
