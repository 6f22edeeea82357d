package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"drug-info/api"
	"drug-info/config"
	"drug-info/models"
	"drug-info/providers"
	"drug-info/services"
	"drug-info/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to drug database.")

	logging.Info("Running database auto-migration...")
	if err := models.Migrate(db); err != nil {
		logging.Fatal("Migration failed", zap.Error(err))
	}

	// Report-Sinks: Tabelle ingestion_runs immer, S3 nur mit Bucket
	sinks := []services.ReportSink{services.NewRunRecorder(db, logging)}
	archive, err := storage.ReportArchiveFromConfig(context.Background(), cfg, logging)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	if archive != nil {
		sinks = append(sinks, archive)
		logging.Info("Report archive enabled", zap.String("bucket", cfg.ReportS3Bucket))
	}

	pipeline := services.NewPipeline(db, logging, cfg.StoreTimeout, cfg.PipelineWorkers, sinks...)
	runner := services.NewBatchRunner(pipeline, func() (providers.Source, error) {
		return providers.FromConfig(cfg, logging)
	}, logging)
	if _, err := providers.FromConfig(cfg, logging); err != nil {
		logging.Fatal("Invalid ingest source", zap.Error(err))
	}
	logging.Info("Ingest source configured", zap.String("source", cfg.IngestSource), zap.Int("workers", cfg.PipelineWorkers))

	router := api.NewRouter(&api.Server{DB: db, Runner: runner, Logger: logging, APIKey: cfg.APISecretKey})

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled ingestion batch...")
		report, err := runner.RunOnce(context.Background(), nil)
		if err != nil {
			logging.Error("Cron batch failed", zap.Error(err))
			return
		}
		logging.Info("Cron batch completed", zap.String("run_id", report.RunID), zap.Int("ingested", report.Ingested))
	})
	if err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}
