package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/regress"
)

type staticSource struct {
	frame *features.Frame
	err   error
}

func (s staticSource) FetchTrainingFrame(context.Context) (*features.Frame, error) {
	return s.frame, s.err
}

type captureRecorder struct {
	runs []*Result
}

func (c *captureRecorder) RecordRun(_ context.Context, res *Result) error {
	c.runs = append(c.runs, res)
	return nil
}

func salesFrame(t *testing.T, n int) *features.Frame {
	t.Helper()
	f := features.NewFrame("price_sold", "product_name", "location", "type", "portion_size", "base_price", "cost", "category_id", "age_group")
	locations := []string{"Kentron", "Arabkir", "Nor Nork", "Ajapnyak"}
	types := []string{"cafe", "pub", "coffee_house"}
	ages := []string{"18-24", "25-34", "35-44"}
	portions := []string{"250ml", "330ml", "500ml"}
	for i := 0; i < n; i++ {
		base := 1000 + float64(i%5)*200
		price := base*1.1 + float64(i%4)*50
		require.NoError(t, f.AppendRow(
			fmt.Sprint(price), fmt.Sprintf("Item %d", i%5), locations[i%4], types[i%3],
			portions[i%3], fmt.Sprint(base), fmt.Sprint(base*0.4), fmt.Sprint(1+i%2), ages[i%3],
		))
	}
	return f
}

func smallConfig() config.TrainingConfig {
	cfg := config.DefaultTrainingConfig()
	cfg.Candidates = []config.CandidateConfig{
		{Name: config.ModelGradientBoosting, Kind: config.ModelGradientBoosting, Iterations: 60, LearningRate: 0.1, MaxDepth: 3, L2LeafReg: 5, EarlyStopping: 20},
		{Name: config.ModelRandomForest, Kind: config.ModelRandomForest, Trees: 10},
		{Name: config.ModelLinear, Kind: config.ModelLinear, Ridge: 1e-6},
	}
	return cfg
}

func TestSplitIsReproducible(t *testing.T) {
	tr1, va1 := Split(50, 0.2, 42)
	tr2, va2 := Split(50, 0.2, 42)
	assert.Equal(t, tr1, tr2)
	assert.Equal(t, va1, va2)
	assert.Len(t, va1, 10)
	assert.Len(t, tr1, 40)

	_, va := Split(9, 0.25, 42)
	assert.Len(t, va, 3, "validation size rounds up")

	tr, va := Split(2, 0.9, 1)
	assert.Len(t, tr, 1)
	assert.Len(t, va, 1)
}

func TestRunTrainsAndPersistsAllCandidates(t *testing.T) {
	dir := t.TempDir()
	servePath := filepath.Join(dir, "serve", "price_model.json")
	rec := &captureRecorder{}

	tr := NewTrainer(smallConfig(), staticSource{frame: salesFrame(t, 80)}, Options{OutputDir: dir, ArtifactPath: servePath}).
		WithRecorder(rec)
	res, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 80, res.Rows)
	assert.Equal(t, 16, res.ValidationRows)
	assert.Equal(t, config.ModelGradientBoosting, res.Served)
	assert.Equal(t, servePath, res.ArtifactPath)
	require.Len(t, res.Candidates, 3)
	for _, c := range res.Candidates {
		assert.FileExists(t, c.ArtifactPath)
		assert.False(t, math.IsNaN(c.Metrics.RMSE))
	}
	assert.Equal(t, ".json", filepath.Ext(res.Candidates[0].ArtifactPath))
	assert.Equal(t, ".gob", filepath.Ext(res.Candidates[1].ArtifactPath))

	served, err := artifact.Load(servePath)
	require.NoError(t, err)
	assert.True(t, served.Native())
	assert.Equal(t, []string{"location", "type", "age_group", "category_id", "portion_bucket", "portion_numeric", "base_price", "cost"}, served.Columns)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, served.CategoricalIndices)

	forest, err := artifact.Load(res.Candidates[1].ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, forest.Spec.OneHotColumns(), forest.Columns)
	assert.Contains(t, forest.Columns, "location_Kentron")

	raw, err := os.ReadFile(res.MetricsPath)
	require.NoError(t, err)
	var metrics map[string]regress.Metrics
	require.NoError(t, json.Unmarshal(raw, &metrics))
	assert.Contains(t, metrics, config.ModelRandomForest)
	assert.Contains(t, metrics, config.ModelGradientBoosting)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.RunID, rec.runs[0].RunID)
}

func TestRunChoosesLowestRMSEWithoutServeModel(t *testing.T) {
	cfg := smallConfig()
	cfg.ServeModel = ""
	res, err := NewTrainer(cfg, staticSource{frame: salesFrame(t, 60)}, Options{OutputDir: t.TempDir()}).Run(context.Background())
	require.NoError(t, err)

	best := res.Candidates[0]
	for _, c := range res.Candidates {
		if c.Metrics.RMSE < best.Metrics.RMSE {
			best = c
		}
	}
	assert.Equal(t, best.Name, res.Served)
	assert.Equal(t, best.ArtifactPath, res.ArtifactPath)
}

func TestRunAbortsOnInsufficientData(t *testing.T) {
	dir := t.TempDir()
	f := salesFrame(t, 12)
	loc := f.Column("location")
	for i := 5; i < 12; i++ {
		loc[i] = ""
	}

	_, err := NewTrainer(smallConfig(), staticSource{frame: f}, Options{OutputDir: dir, ArtifactPath: filepath.Join(dir, "m.json")}).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrInsufficientData))
	assert.Contains(t, err.Error(), "insufficient data")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact is produced")
}

func TestRunAbortsOnMissingTarget(t *testing.T) {
	f := features.NewFrame("product_name", "location")
	require.NoError(t, f.AppendRow("Tea", "Kentron"))

	_, err := NewTrainer(smallConfig(), staticSource{frame: f}, Options{OutputDir: t.TempDir()}).Run(context.Background())
	assert.True(t, errors.Is(err, features.ErrDataIntegrity))
}

func TestRunPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewTrainer(smallConfig(), staticSource{err: boom}, Options{OutputDir: t.TempDir()}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunBaselineProfile(t *testing.T) {
	f := features.NewFrame("price_sold", "product_id", "category_id", "units_sold", "revenue", "portion_size", "product_name", "category_name", "date")
	for i := 0; i < 40; i++ {
		price := 900 + float64(i%6)*150
		require.NoError(t, f.AppendRow(
			fmt.Sprint(price), fmt.Sprint(1+i%6), fmt.Sprint(1+i%3), fmt.Sprint(1+i%4), fmt.Sprint(price*float64(1+i%4)),
			fmt.Sprintf("%dml", 200+50*(i%6)), fmt.Sprintf("Product %d", i%6), fmt.Sprintf("Category %d", i%3),
			fmt.Sprintf("2024-01-%02d", 1+i%28),
		))
	}
	dir := t.TempDir()
	res, err := NewTrainer(config.BaselineTrainingConfig(), staticSource{frame: f}, Options{OutputDir: dir, Plots: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, res.ValidationRows)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, filepath.Join(dir, config.ProfileBaseline, "metrics.json"), res.MetricsPath)
	for _, c := range res.Candidates {
		assert.NotNil(t, c.Metrics.R2)
	}
}
