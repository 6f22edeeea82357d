package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"drug-info/config"
	"drug-info/services"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const reportPrefix = "reports"

// ReportArchive legt jeden Batch-Report als JSON-Dokument im Bucket ab.
type ReportArchive struct {
	Client *s3.Client
	Bucket string
	Logger *zap.Logger
}

func NewReportArchive(client *s3.Client, bucket string, logger *zap.Logger) *ReportArchive {
	return &ReportArchive{Client: client, Bucket: bucket, Logger: logger}
}

// ReportArchiveFromConfig liefert nil, wenn kein Bucket konfiguriert ist.
func ReportArchiveFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ReportArchive, error) {
	if !cfg.ReportArchiveEnabled() {
		return nil, nil
	}
	client, err := NewS3Client(ctx, ReportEndpoint(cfg))
	if err != nil {
		return nil, err
	}
	return NewReportArchive(client, cfg.ReportS3Bucket, logger), nil
}

// ReportKey liefert den Objektschlüssel eines Laufs.
func ReportKey(runID string) string {
	return path.Join(reportPrefix, runID+".json")
}

func (a *ReportArchive) Emit(ctx context.Context, report *services.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	key := ReportKey(report.RunID)
	if err := UploadFile(ctx, a.Client, a.Bucket, key, "application/json", data); err != nil {
		return err
	}
	a.Logger.Info("Report archiviert", zap.String("run_id", report.RunID), zap.String("key", key))
	return nil
}
