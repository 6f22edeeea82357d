package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"
)

// BatchState ist der Zustand eines Batch-Laufs.
type BatchState string

const (
	StateRunning   BatchState = "running"
	StateCompleted BatchState = "completed"
	StateAborted   BatchState = "aborted"
)

// Rejection ist ein abgelehnter Datensatz im Report.
type Rejection struct {
	Index    int       `json:"index"`
	Origin   string    `json:"origin,omitempty"`
	Identity string    `json:"identity,omitempty"`
	Kind     ErrorKind `json:"kind"`
	Stage    Stage     `json:"stage"`
	Field    string    `json:"field,omitempty"`
	Reason   string    `json:"reason"`
}

// Report ist der Abschlussbericht eines Batch-Laufs.
type Report struct {
	RunID      string     `json:"run_id"`
	Source     string     `json:"source"`
	State      BatchState `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`

	Total                int `json:"total"`
	Ingested             int `json:"ingested"`
	RejectedByValidation int `json:"rejected_by_validation"`
	RejectedByLoad       int `json:"rejected_by_load"`

	DrugsCreated                 int `json:"drugs_created"`
	AlternateIdentifiersInserted int `json:"alternate_identifiers_inserted"`
	GeneActionsInserted          int `json:"gene_actions_inserted"`

	Rejections  []Rejection `json:"rejections"`
	AbortReason string      `json:"abort_reason,omitempty"`
}

// RejectionsJSON serialisiert die Ablehnungen; eine leere Liste wird zu [].
func (r *Report) RejectionsJSON() ([]byte, error) {
	if r.Rejections == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Rejections)
}

func (r *Report) sortRejections() {
	sort.SliceStable(r.Rejections, func(i, j int) bool {
		return r.Rejections[i].Index < r.Rejections[j].Index
	})
}

func (r *Report) fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", r.RunID),
		zap.String("source", r.Source),
		zap.String("state", string(r.State)),
		zap.Int("total", r.Total),
		zap.Int("ingested", r.Ingested),
		zap.Int("rejected_by_validation", r.RejectedByValidation),
		zap.Int("rejected_by_load", r.RejectedByLoad),
		zap.Int("drugs_created", r.DrugsCreated),
		zap.Duration("duration", r.FinishedAt.Sub(r.StartedAt)),
	}
}

// ReportSink nimmt den fertigen Report entgegen (Datenbank, S3, ...).
type ReportSink interface {
	Emit(ctx context.Context, report *Report) error
}

// LogSink schreibt jeden Report und jede Ablehnung ins Log.
type LogSink struct {
	Logger *zap.Logger
}

func (s *LogSink) Emit(ctx context.Context, report *Report) error {
	log := s.Logger.With(zap.String("run_id", report.RunID))
	for _, rej := range report.Rejections {
		log.Warn("Datensatz abgelehnt",
			zap.Int("index", rej.Index),
			zap.String("origin", rej.Origin),
			zap.String("kind", string(rej.Kind)),
			zap.String("stage", string(rej.Stage)),
			zap.String("field", rej.Field),
			zap.String("reason", rej.Reason))
	}
	if report.State == StateAborted {
		log.Error("Batch abgebrochen", append(report.fields(), zap.String("abort_reason", report.AbortReason))...)
		return nil
	}
	log.Info("Batch abgeschlossen", report.fields()...)
	return nil
}
