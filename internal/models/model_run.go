/**
 * @description
 * Training run audit model.
 * Maps to the 'model_runs' table.
 *
 * @dependencies
 * - gorm.io/datatypes: JSON columns for metrics and hyperparameters
 */

package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModelRun records one Trainer invocation and where its artifact went
type ModelRun struct {
	ID             string         `gorm:"primaryKey;column:id" json:"id"`
	Profile        string         `gorm:"column:profile;index" json:"profile"`
	ServedModel    string         `gorm:"column:served_model" json:"served_model"`
	ArtifactID     string         `gorm:"column:artifact_id" json:"artifact_id"`
	ArtifactPath   string         `gorm:"column:artifact_path" json:"artifact_path"`
	Rows           int            `gorm:"column:rows" json:"rows"`
	TrainRows      int            `gorm:"column:train_rows" json:"train_rows"`
	ValidationRows int            `gorm:"column:validation_rows" json:"validation_rows"`
	Metrics        datatypes.JSON `gorm:"column:metrics" json:"metrics"`
	Params         datatypes.JSON `gorm:"column:params" json:"params"`
	StartedAt      time.Time      `gorm:"column:started_at" json:"started_at"`
	FinishedAt     time.Time      `gorm:"column:finished_at;index" json:"finished_at"`
}

// TableName overrides the table name used by ModelRun to `model_runs`
func (ModelRun) TableName() string {
	return "model_runs"
}

// All lists every model managed by AutoMigrate, parents first
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Restaurant{},
		&Customer{},
		&MenuItem{},
		&CalendarDay{},
		&Sale{},
		&ModelRun{},
	}
}
