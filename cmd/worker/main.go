/**
 * @description
 * Training Worker Entry Point.
 * 1. Waits until the sales fact table holds data.
 * 2. Trains every configured candidate and persists the serving artifact.
 * 3. Records the run and tells API instances to reload.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/datasource
 * - backend/internal/training
 * - backend/internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/services"
	"github.com/yerevan-pricing/backend/internal/training"
)

const (
	minSalesRows = 1
	waitTimeout  = 120 * time.Second
	pollInterval = 5 * time.Second
)

func main() {
	logger.Info("🔥 Starting training worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	trainCfg, err := config.LoadTrainingConfig(cfg.Training.ConfigPath)
	if err != nil {
		logger.Fatal("Failed to load training config: %v", err)
	}

	// 2. Connect DBs
	gdb, err := db.ConnectOptional(cfg)
	if err != nil {
		logger.Fatal("Database connection failed: %v", err)
	}
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	src, err := datasource.Open(cfg, gdb)
	if err != nil {
		logger.Fatal("Failed to open data source: %v", err)
	}

	// 3. Context with Cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Wait for data
	if err := datasource.WaitForData(ctx, src, minSalesRows, waitTimeout, pollInterval); err != nil {
		logger.Fatal("No training data: %v", err)
	}

	// 5. Train
	trainer := training.NewTrainer(trainCfg, src, training.Options{
		OutputDir:    cfg.Model.OutputDir,
		ArtifactPath: cfg.Model.ArtifactPath,
		Plots:        true,
	})
	if gdb != nil {
		trainer = trainer.WithRecorder(services.NewModelRunService(gdb))
	}
	res, err := trainer.Run(ctx)
	if err != nil {
		logger.Fatal("Training failed: %v", err)
	}
	if best, ok := res.ServedCandidate(); ok {
		logger.Info("✅ Run %s served %s (RMSE %.2f) at %s", res.RunID, res.Served, best.Metrics.RMSE, res.ArtifactPath)
	}

	// 6. Notify API instances
	host, _ := os.Hostname()
	if err := services.PublishReload(ctx, redisClient, "worker@"+host, res.ArtifactPath, res.RunID); err != nil {
		logger.Error("Failed to publish reload: %v", err)
	}
	logger.Info("Worker exited.")
}
