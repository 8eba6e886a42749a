/**
 * @description
 * Relational store connection manager using GORM.
 * Opens Postgres in deployed environments and SQLite for local runs and tests,
 * then migrates the star schema.
 *
 * @dependencies
 * - gorm.io/gorm: ORM library
 * - gorm.io/driver/postgres: Postgres driver
 * - gorm.io/driver/sqlite: SQLite driver
 */

package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/models"
)

// Connect opens the configured database and applies migrations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormLogger.Default.LogMode(logLevel(cfg.Server.Env))}

	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case config.DBDriverSQLite:
		dsn := cfg.DB.URL
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DB.URL,
			PreferSimpleProtocol: true, // disable prepared statements to avoid stmtcache collisions behind poolers
		})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB.Driver == config.DBDriverSQLite {
		// one writer; shared-cache memory databases vanish with their last connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("✅ Connected to %s", cfg.DB.Driver)
	return db, nil
}

// ConnectOptional connects only when a database is configured; otherwise it
// returns a nil handle and no error.
func ConnectOptional(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.HasDatabase() {
		logger.Info("No database configured; running without one")
		return nil, nil
	}
	return Connect(cfg)
}

// Migrate creates or updates every table of the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func logLevel(env string) gormLogger.LogLevel {
	switch env {
	case "development":
		return gormLogger.Info
	case "staging":
		return gormLogger.Warn
	case "test":
		return gormLogger.Silent
	}
	return gormLogger.Error
}
