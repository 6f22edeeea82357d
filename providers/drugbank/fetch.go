// Package drugbank enthält die Logik für das Auslesen der DrugBank-Detailseiten.
package drugbank

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"drug-info/config"
	"drug-info/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxParallelPages = 5

// Fetcher implementiert providers.Source für DrugBank.
type Fetcher struct {
	Identifiers []string
	Logger      *zap.Logger
	Http        *resty.Client
}

// NewFetcher erstellt einen neuen DrugBank-Fetcher aus der Konfiguration.
func NewFetcher(cfg *config.Config, identifiers []string, logger *zap.Logger) *Fetcher {
	client := resty.New()
	client.SetBaseURL(cfg.DrugBankBaseURL)
	client.SetTimeout(cfg.DrugBankTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	return &Fetcher{Identifiers: identifiers, Logger: logger, Http: client}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "drugbank"
}

// Fetch lädt alle konfigurierten Seiten parallel. Der erste Fehler bricht ab: laufende Abrufe
// werden abgebrochen und keine weiteren begonnen. Die Reihenfolge der Ergebnisse entspricht
// der Reihenfolge der Kennungen.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	log := f.Logger.With(zap.Int("identifiers", len(f.Identifiers)))
	log.Info("Starte Abruf der DrugBank-Seiten.")

	records := make([]models.RawRecord, len(f.Identifiers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)

	for i, id := range f.Identifiers {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := f.FetchDrug(gctx, id)
			if err != nil {
				log.Error("DrugBank-Seite konnte nicht verarbeitet werden", zap.String("identifier", id), zap.Error(err))
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("DrugBank-Abruf abgeschlossen", zap.Int("records", len(records)))
	return records, nil
}

// FetchDrug lädt und parst eine einzelne Detailseite.
func (f *Fetcher) FetchDrug(ctx context.Context, identifier string) (models.RawRecord, error) {
	f.Logger.Debug("Rufe DrugBank-Seite auf", zap.String("identifier", identifier))

	res, err := f.Http.R().
		SetContext(ctx).
		Get("/drugs/" + url.PathEscape(identifier))
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("fetch %s: %w", identifier, err)
	}
	if res.StatusCode() != http.StatusOK {
		return models.RawRecord{}, fmt.Errorf("fetch %s: unexpected status %d", identifier, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("parse %s: %w", identifier, err)
	}
	return ParseDrugPage(identifier, doc)
}
