package providers

import (
	"context"

	"drug-info/models"
)

// Source ist das Interface, das jede Datenquelle (z.B. DrugBank, JSON-Datei) implementieren muss.
type Source interface {
	// Fetch liefert alle Rohdatensätze der Quelle. Ein Fehler bedeutet Strukturbruch
	// oder Nichterreichbarkeit und bricht den Batch ab.
	Fetch(ctx context.Context) ([]models.RawRecord, error)

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "drugbank").
	Name() string
}

// Static ist eine Quelle über eine feste Liste, z.B. für Tests oder den Admin-Endpunkt.
type Static struct {
	Label   string
	Records []models.RawRecord
}

func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s *Static) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	out := make([]models.RawRecord, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
