package services

import (
	"context"
	"fmt"

	"drug-info/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunRecorder speichert Reports in der Tabelle ingestion_runs.
type RunRecorder struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewRunRecorder(db *gorm.DB, logger *zap.Logger) *RunRecorder {
	return &RunRecorder{DB: db, Logger: logger}
}

// Emit schreibt den Report; ein erneuter Aufruf mit derselben RunID überschreibt ihn.
func (r *RunRecorder) Emit(ctx context.Context, report *Report) error {
	rejections, err := report.RejectionsJSON()
	if err != nil {
		return fmt.Errorf("encode rejections: %w", err)
	}
	finished := report.FinishedAt
	run := models.IngestionRun{
		ID:                   report.RunID,
		StartedAt:            report.StartedAt,
		FinishedAt:           &finished,
		Source:               report.Source,
		State:                string(report.State),
		Total:                report.Total,
		Ingested:             report.Ingested,
		RejectedByValidation: report.RejectedByValidation,
		RejectedByLoad:       report.RejectedByLoad,
		AbortReason:          report.AbortReason,
		Rejections:           datatypes.JSON(rejections),
	}
	if err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&run).Error; err != nil {
		return fmt.Errorf("save ingestion run: %w", err)
	}
	r.Logger.Debug("Lauf gespeichert", zap.String("run_id", run.ID))
	return nil
}

// ListRuns liefert die letzten Läufe, neueste zuerst.
func ListRuns(ctx context.Context, db *gorm.DB, limit int) ([]models.IngestionRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var runs []models.IngestionRun
	err := db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}
