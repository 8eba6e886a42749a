/**
 * @description
 * Configuration loader for the Yerevan pricing backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if the database URL is missing while a component needs it.
 * - Training hyperparameters are loaded separately from YAML (see training.go).
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DataSourcePostgres = "postgres"
	DataSourceCSV      = "csv"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	UnknownProductDefaults = "defaults"
	UnknownProductReject   = "reject"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Data     DataConfig
	Model    ModelConfig
	Training TrainingFileConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development", "staging", "production" or "test"
}

// DBConfig holds relational store settings
type DBConfig struct {
	Driver string // "postgres" or "sqlite"
	URL    string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL     string
	Enabled bool
}

// DataConfig selects where training rows and menu metadata come from
type DataConfig struct {
	Source string // "postgres" or "csv"
	Dir    string // CSV snapshot directory
}

// ModelConfig holds artifact locations and serving policy
type ModelConfig struct {
	ArtifactPath         string
	OutputDir            string
	UnknownProductPolicy string
	CacheTTL             time.Duration
}

// TrainingFileConfig points at the YAML hyperparameter file
type TrainingFileConfig struct {
	ConfigPath string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (containers inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", DBDriverPostgres)),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379"),
			Enabled: getEnvAsBool("REDIS_ENABLED", true),
		},
		Data: DataConfig{
			Source: strings.ToLower(getEnv("DATA_SOURCE", DataSourcePostgres)),
			Dir:    getEnv("DATA_DIR", "etl/database/data"),
		},
		Model: ModelConfig{
			ArtifactPath:         getEnv("MODEL_ARTIFACT_PATH", "analytics/outputs/price_model.json"),
			OutputDir:            getEnv("MODEL_OUTPUT_DIR", "analytics/outputs"),
			UnknownProductPolicy: strings.ToLower(getEnv("UNKNOWN_PRODUCT_POLICY", UnknownProductDefaults)),
			CacheTTL:             time.Duration(getEnvAsInt("PREDICTION_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Training: TrainingFileConfig{
			ConfigPath: getEnv("TRAINING_CONFIG_PATH", "training.yaml"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NeedsDatabase reports whether any configured component reads the relational store
func (c *Config) NeedsDatabase() bool {
	return c.Data.Source == DataSourcePostgres
}

// HasDatabase reports whether a relational store is configured at all.
// SQLite runs without a URL.
func (c *Config) HasDatabase() bool {
	return c.DB.URL != "" || c.DB.Driver == DBDriverSQLite
}

// validate checks for required variables
func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DBDriverPostgres, DBDriverSQLite, cfg.DB.Driver)
	}
	switch cfg.Data.Source {
	case DataSourcePostgres, DataSourceCSV:
	default:
		return fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", DataSourcePostgres, DataSourceCSV, cfg.Data.Source)
	}
	if cfg.NeedsDatabase() && cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE=%s", cfg.Data.Source)
	}
	switch cfg.Model.UnknownProductPolicy {
	case UnknownProductDefaults, UnknownProductReject:
	default:
		return fmt.Errorf("UNKNOWN_PRODUCT_POLICY must be %q or %q", UnknownProductDefaults, UnknownProductReject)
	}
	if cfg.Model.ArtifactPath == "" {
		return fmt.Errorf("MODEL_ARTIFACT_PATH is required")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
