package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSVSourceNeedsNoDatabase(t *testing.T) {
	t.Setenv("DATA_SOURCE", "csv")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("UNKNOWN_PRODUCT_POLICY", "reject")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DataSourceCSV, cfg.Data.Source)
	assert.Equal(t, UnknownProductReject, cfg.Model.UnknownProductPolicy)
	assert.False(t, cfg.NeedsDatabase())
	assert.False(t, cfg.HasDatabase())

	cfg.DB.Driver = DBDriverSQLite
	assert.True(t, cfg.HasDatabase())
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATA_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("DATA_SOURCE", "csv")
	t.Setenv("UNKNOWN_PRODUCT_POLICY", "guess")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadTrainingConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadTrainingConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTrainingConfig(), cfg)
}

func TestLoadTrainingConfigBaselineProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.yaml")
	body := "profile: baseline\ntop_k: 3\nmin_rows: 12\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadTrainingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProfileBaseline, cfg.Profile)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 12, cfg.MinRows)
	assert.Equal(t, []string{"product_name", "category_name", "portion_size"}, cfg.CategoricalColumns)
	assert.InDelta(t, 0.25, cfg.ValidationFraction, 1e-12)
}

func TestTrainingConfigValidate(t *testing.T) {
	cfg := DefaultTrainingConfig()
	cfg.ServeModel = "catboost"
	require.Error(t, cfg.Validate())

	cfg = DefaultTrainingConfig()
	cfg.Candidates = append(cfg.Candidates, CandidateConfig{Name: ModelLinear, Kind: ModelLinear})
	require.Error(t, cfg.Validate())

	cfg = DefaultTrainingConfig()
	cfg.ValidationFraction = 1
	require.Error(t, cfg.Validate())

	require.NoError(t, DefaultTrainingConfig().Validate())
	require.NoError(t, BaselineTrainingConfig().Validate())
}
