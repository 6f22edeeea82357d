package providers

import (
	"fmt"

	"drug-info/config"
	"drug-info/providers/drugbank"
	"drug-info/providers/jsonfile"

	"go.uber.org/zap"
)

// FromConfig baut die über INGEST_SOURCE gewählte Quelle.
func FromConfig(cfg *config.Config, logger *zap.Logger) (Source, error) {
	switch cfg.IngestSource {
	case "drugbank":
		ids := cfg.Identifiers()
		if len(ids) == 0 {
			return nil, fmt.Errorf("DRUGBANK_IDENTIFIERS is empty")
		}
		return drugbank.NewFetcher(cfg, ids, logger), nil
	case "file":
		if cfg.IngestFile == "" {
			return nil, fmt.Errorf("INGEST_FILE is required for source %q", cfg.IngestSource)
		}
		return jsonfile.NewSource(cfg.IngestFile, logger), nil
	default:
		return nil, fmt.Errorf("unknown ingest source %q", cfg.IngestSource)
	}
}
