package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drug-info/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoadResult beschreibt, was ein Load tatsächlich geschrieben hat.
type LoadResult struct {
	DrugID                       string
	DrugCreated                  bool
	AlternateIdentifiersInserted int
	GeneActionsInserted          int
}

// Loader schreibt die Zeilen eines Datensatzes atomar und idempotent.
type Loader struct {
	DB      *gorm.DB
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewLoader erstellt einen Loader mit Timeout pro Datensatz.
func NewLoader(db *gorm.DB, logger *zap.Logger, timeout time.Duration) *Loader {
	return &Loader{DB: db, Logger: logger, Timeout: timeout}
}

var (
	drugConflict       = clause.OnConflict{Columns: []clause.Column{{Name: "drug_id"}}, DoNothing: true}
	alternateConflict  = clause.OnConflict{Columns: []clause.Column{{Name: "drug_id"}, {Name: "source_name"}, {Name: "external_id"}}, DoNothing: true}
	geneActionConflict = clause.OnConflict{Columns: []clause.Column{{Name: "drug_id"}, {Name: "gene_name"}, {Name: "action_key"}}, DoNothing: true}
)

// Load schreibt Drug, alternative Kennungen und Gen-Aktionen in einer Transaktion.
// Bereits vorhandene Zeilen (gleicher natürlicher Schlüssel) werden übersprungen.
func (l *Loader) Load(ctx context.Context, drugID string, rows NormalizedRowSet) (LoadResult, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	rows = rows.WithDrugID(drugID)
	res := LoadResult{DrugID: drugID}

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		drug := models.Drug{DrugID: drugID, Smiles: rows.Drug.Smiles}
		result := tx.Omit(clause.Associations).Clauses(drugConflict).Create(&drug)
		if result.Error != nil {
			return classifyStoreError(StageLoad, describeDrug(drug), result.Error)
		}
		res.DrugCreated = result.RowsAffected > 0
		if !res.DrugCreated {
			var existing models.Drug
			if err := tx.Select("drug_id", "smiles").Where("drug_id = ?", drugID).Take(&existing).Error; err != nil {
				return classifyStoreError(StageLoad, describeDrug(drug), err)
			}
			if existing.Smiles != drug.Smiles {
				return &RecordError{
					Kind:   KindLoadConstraint,
					Stage:  StageLoad,
					Field:  describeDrug(drug),
					Reason: "drug_id is already bound to a different identity string",
				}
			}
		}

		for i := range rows.AlternateIdentifiers {
			row := rows.AlternateIdentifiers[i]
			result := tx.Clauses(alternateConflict).Create(&row)
			if result.Error != nil {
				return classifyStoreError(StageLoad, describeAlternateIdentifier(row), result.Error)
			}
			res.AlternateIdentifiersInserted += int(result.RowsAffected)
		}

		for i := range rows.GeneActions {
			row := rows.GeneActions[i]
			result := tx.Clauses(geneActionConflict).Create(&row)
			if result.Error != nil {
				return classifyStoreError(StageLoad, describeGeneAction(row), result.Error)
			}
			res.GeneActionsInserted += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		var recErr *RecordError
		var sysErr *SystemicError
		if errors.As(err, &recErr) || errors.As(err, &sysErr) {
			return LoadResult{}, err
		}
		// Begin/Commit selbst ist fehlgeschlagen
		return LoadResult{}, classifyStoreError(StageLoad, "transaction", err)
	}

	l.Logger.Debug("Datensatz geladen",
		zap.String("drug_id", drugID),
		zap.Bool("drug_created", res.DrugCreated),
		zap.Int("alternate_identifiers", res.AlternateIdentifiersInserted),
		zap.Int("gene_actions", res.GeneActionsInserted))
	return res, nil
}

func describeDrug(d models.Drug) string {
	return fmt.Sprintf("drugs(drug_id=%s, smiles=%s)", d.DrugID, d.Smiles)
}

func describeAlternateIdentifier(a models.AlternateIdentifier) string {
	return fmt.Sprintf("alternate_identifiers(drug_id=%s, source_name=%s, external_id=%s)", a.DrugID, a.SourceName, a.ExternalID)
}

func describeGeneAction(g models.GeneAction) string {
	action := "NULL"
	if g.Action != nil {
		action = *g.Action
	}
	return fmt.Sprintf("gene_actions(drug_id=%s, gene_name=%s, action=%s)", g.DrugID, g.GeneName, action)
}
