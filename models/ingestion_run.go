package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionRun speichert den Abschlussbericht eines Batch-Laufs.
type IngestionRun struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Source string `json:"source" gorm:"index"`
	State  string `json:"state" gorm:"index;not null"` // running, completed, aborted

	Total                int `json:"total"`
	Ingested             int `json:"ingested"`
	RejectedByValidation int `json:"rejected_by_validation"`
	RejectedByLoad       int `json:"rejected_by_load"`

	AbortReason string         `json:"abort_reason,omitempty" gorm:"type:text"`
	Rejections  datatypes.JSON `json:"rejections" gorm:"type:jsonb"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
