package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"drug-info/models"
	"drug-info/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func exampleRows() NormalizedRowSet {
	return Normalize(models.DrugRecord{
		Smiles:          "CCO",
		CrossReferences: []models.CrossReference{{Source: "drugbank", ExternalID: "DB00898"}},
		GeneActions: []models.GeneFact{
			{Gene: "ADH1B", Action: testutil.StrPtr("inhibitor")},
			{Gene: "CYP2E1"},
		},
	})
}

func TestLoaderLoadIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	loader := NewLoader(db, zap.NewNop(), 5*time.Second)

	res, err := loader.Load(context.Background(), "drug-1", exampleRows())
	require.NoError(t, err)
	assert.Equal(t, LoadResult{DrugID: "drug-1", DrugCreated: true, AlternateIdentifiersInserted: 1, GeneActionsInserted: 2}, res)

	res, err = loader.Load(context.Background(), "drug-1", exampleRows())
	require.NoError(t, err)
	assert.Equal(t, LoadResult{DrugID: "drug-1"}, res)

	drugs, altIDs, geneActions := testutil.CountRows(t, db)
	assert.Equal(t, int64(1), drugs)
	assert.Equal(t, int64(1), altIDs)
	assert.Equal(t, int64(2), geneActions)
}

func TestLoaderPreservesNullAction(t *testing.T) {
	db := testutil.OpenDB(t)
	loader := NewLoader(db, zap.NewNop(), 5*time.Second)

	_, err := loader.Load(context.Background(), "drug-1", exampleRows())
	require.NoError(t, err)

	var row models.GeneAction
	require.NoError(t, db.Where("gene_name = ?", "CYP2E1").Take(&row).Error)
	assert.Nil(t, row.Action)

	var nulls int64
	require.NoError(t, db.Model(&models.GeneAction{}).Where("action IS NULL").Count(&nulls).Error)
	assert.Equal(t, int64(1), nulls)

	var empties int64
	require.NoError(t, db.Model(&models.GeneAction{}).Where("action = ?", "").Count(&empties).Error)
	assert.Equal(t, int64(0), empties)
}

func TestLoaderSmilesBoundToOtherDrug(t *testing.T) {
	db := testutil.OpenDB(t)
	loader := NewLoader(db, zap.NewNop(), 5*time.Second)
	require.NoError(t, db.Create(&models.Drug{DrugID: "drug-1", Smiles: "CCO"}).Error)

	_, err := loader.Load(context.Background(), "drug-2", exampleRows())
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr), "got %v", err)
	assert.Equal(t, KindLoadConstraint, recErr.Kind)
	assert.Contains(t, recErr.Field, "drugs(drug_id=drug-2")

	drugs, altIDs, geneActions := testutil.CountRows(t, db)
	assert.Equal(t, int64(1), drugs)
	assert.Zero(t, altIDs)
	assert.Zero(t, geneActions)
}

func TestLoaderDrugIDBoundToOtherSmiles(t *testing.T) {
	db := testutil.OpenDB(t)
	loader := NewLoader(db, zap.NewNop(), 5*time.Second)
	require.NoError(t, db.Create(&models.Drug{DrugID: "drug-1", Smiles: "CCN"}).Error)

	_, err := loader.Load(context.Background(), "drug-1", exampleRows())
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, KindLoadConstraint, recErr.Kind)

	_, altIDs, geneActions := testutil.CountRows(t, db)
	assert.Zero(t, altIDs)
	assert.Zero(t, geneActions)
}

func TestLoaderClosedStoreIsSystemic(t *testing.T) {
	db := testutil.OpenDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewLoader(db, zap.NewNop(), time.Second).Load(context.Background(), "drug-1", exampleRows())
	assert.True(t, IsSystemic(err), "got %v", err)
}

func TestLoaderStoresLongValues(t *testing.T) {
	db := testutil.OpenDB(t)
	loader := NewLoader(db, zap.NewNop(), 5*time.Second)

	long := strings.Repeat("x", 300)
	rows := Normalize(models.DrugRecord{
		Smiles:          "CCO",
		CrossReferences: []models.CrossReference{{Source: long, ExternalID: long + "-id"}},
		GeneActions:     []models.GeneFact{{Gene: long, Action: &long}},
	})
	res, err := loader.Load(context.Background(), "drug-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlternateIdentifiersInserted)
	assert.Equal(t, 1, res.GeneActionsInserted)

	var row models.GeneAction
	require.NoError(t, db.Take(&row).Error)
	assert.Equal(t, long, *row.Action)
}

func TestClassifyStoreError(t *testing.T) {
	assert.Nil(t, classifyStoreError(StageLoad, "row", nil))
	assert.True(t, IsSystemic(classifyStoreError(StageLoad, "row", context.DeadlineExceeded)))
	assert.True(t, IsSystemic(classifyStoreError(StageLoad, "row", errors.New("password authentication failed"))))

	err := classifyStoreError(StageLoad, "row", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, KindLoadConstraint, recErr.Kind)
	assert.Equal(t, "row", recErr.Field)

	err = classifyStoreError(StageLoad, "row", &pgconn.PgError{Code: "23503"})
	assert.True(t, errors.As(err, &recErr))

	for _, code := range []string{"22001", "22021", "54000"} {
		err = classifyStoreError(StageLoad, "row", &pgconn.PgError{Code: code})
		require.True(t, errors.As(err, &recErr), code)
		assert.Equal(t, KindLoadConstraint, recErr.Kind, code)
	}

	err = classifyStoreError(StageLoad, "row", &pgconn.PgError{Code: "42P01"})
	assert.True(t, IsSystemic(err))
}
