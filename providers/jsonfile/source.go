// Package jsonfile liest Rohdatensätze aus einer JSON-Datei (Array oder JSON Lines).
package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"drug-info/models"

	"go.uber.org/zap"
)

var errNullRecord = errors.New("record is null")

// Source implementiert providers.Source für lokale Dateien.
type Source struct {
	Path   string
	Logger *zap.Logger
}

// NewSource erstellt eine neue Datei-Quelle.
func NewSource(path string, logger *zap.Logger) *Source {
	return &Source{Path: path, Logger: logger}
}

func (s *Source) Name() string {
	return "file"
}

// Fetch liest die Datei. Unbekannte Felder oder falsche Typen sind ein Strukturbruch
// und werden nicht umgedeutet.
func (s *Source) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	s.Logger.Info("Datensätze aus Datei gelesen", zap.String("path", s.Path), zap.Int("count", len(records)))
	return records, nil
}

// Decode liest entweder ein JSON-Array oder einen Datensatz pro Zeile.
func Decode(r io.Reader) ([]models.RawRecord, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.DisallowUnknownFields()

	var records []models.RawRecord
	if first == '[' {
		var entries []*models.RawRecord
		if err := dec.Decode(&entries); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, errors.New("trailing data after record array")
		}
		records = make([]models.RawRecord, 0, len(entries))
		for i, rec := range entries {
			if rec == nil {
				return nil, fmt.Errorf("record %d: %w", i, errNullRecord)
			}
			records = append(records, *rec)
		}
		return records, nil
	}

	for i := 0; ; i++ {
		var rec *models.RawRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("record %d: %w", i, errNullRecord)
		}
		records = append(records, *rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}
