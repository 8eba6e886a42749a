package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/models"
	"github.com/yerevan-pricing/backend/internal/regress"
	"github.com/yerevan-pricing/backend/internal/training"
)

// ModelRunService persists training run summaries.
type ModelRunService struct {
	DB *gorm.DB
}

func NewModelRunService(db *gorm.DB) *ModelRunService {
	return &ModelRunService{DB: db}
}

// RecordRun implements training.Recorder.
func (s *ModelRunService) RecordRun(ctx context.Context, res *training.Result) error {
	metrics := make(map[string]regress.Metrics, len(res.Candidates))
	for _, c := range res.Candidates {
		metrics[c.Name] = c.Metrics
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	paramsJSON, err := json.Marshal(res.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	run := models.ModelRun{
		ID:             res.RunID,
		Profile:        res.Profile,
		ServedModel:    res.Served,
		ArtifactPath:   res.ArtifactPath,
		Rows:           res.Rows,
		TrainRows:      res.TrainRows,
		ValidationRows: res.ValidationRows,
		Metrics:        datatypes.JSON(metricsJSON),
		Params:         datatypes.JSON(paramsJSON),
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
	}
	if res.Artifact != nil {
		run.ArtifactID = res.Artifact.ID
	}
	return s.DB.WithContext(ctx).Create(&run).Error
}

// Recent lists the latest runs first.
func (s *ModelRunService) Recent(ctx context.Context, limit int) ([]models.ModelRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.ModelRun
	err := s.DB.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
