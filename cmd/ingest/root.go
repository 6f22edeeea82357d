package main

import (
	"errors"
	"fmt"
	"strings"

	"drug-info/config"
	"drug-info/models"
	"drug-info/providers"
	"drug-info/services"
	"drug-info/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errAborted signalisiert einen abgebrochenen Batch; der Report wurde bereits geloggt.
var errAborted = errors.New("batch aborted")

type options struct {
	source  string
	file    string
	ids     []string
	workers int
	migrate bool
}

// apply überschreibt die Konfiguration mit gesetzten Flags.
func (o options) apply(cfg *config.Config) {
	if o.source != "" {
		cfg.IngestSource = o.source
	}
	if o.file != "" {
		cfg.IngestFile = o.file
		if o.source == "" {
			cfg.IngestSource = "file"
		}
	}
	if len(o.ids) > 0 {
		cfg.DrugBankIdentifiers = strings.Join(o.ids, ",")
	}
	if o.workers > 0 {
		cfg.PipelineWorkers = o.workers
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "ingest [--source drugbank|file] [--file records.jsonl] [--ids DB00006,...]",
		Short:         "Runs one ingestion batch against the drug database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("can't initialize zap logger: %w", err)
			}
			defer logging.Sync()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.apply(cfg)
			return run(cmd, cfg, opts.migrate, logging)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", "", "record source: drugbank or file (default INGEST_SOURCE)")
	cmd.Flags().StringVar(&opts.file, "file", "", "JSON array or JSON lines file with raw records")
	cmd.Flags().StringSliceVar(&opts.ids, "ids", nil, "DrugBank identifiers to fetch (default DRUGBANK_IDENTIFIERS)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "records processed in parallel (default PIPELINE_WORKERS)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "run schema migration before the batch")
	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, migrate bool, logging *zap.Logger) error {
	ctx := cmd.Context()

	source, err := providers.FromConfig(cfg, logging)
	if err != nil {
		return err
	}

	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if migrate {
		if err := models.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	sinks := []services.ReportSink{services.NewRunRecorder(db, logging)}
	archive, err := storage.ReportArchiveFromConfig(ctx, cfg, logging)
	if err != nil {
		return err
	}
	if archive != nil {
		sinks = append(sinks, archive)
	}

	pipeline := services.NewPipeline(db, logging, cfg.StoreTimeout, cfg.PipelineWorkers, sinks...)
	report, err := pipeline.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("%w: %v", errAborted, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d total, %d ingested, %d rejected by validation, %d rejected by load\n",
		report.RunID, report.State, report.Total, report.Ingested, report.RejectedByValidation, report.RejectedByLoad)
	return nil
}
