// Package testutil stellt eine migrierte SQLite-Datenbank für Tests bereit.
package testutil

import (
	"path/filepath"
	"testing"

	"drug-info/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB öffnet eine frische Datenbank im Temp-Verzeichnis des Tests mit aktiven Foreign Keys.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "drug-info.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CountRows zählt die Zeilen der drei Drug-Tabellen.
func CountRows(t testing.TB, db *gorm.DB) (drugs, altIDs, geneActions int64) {
	t.Helper()

	if err := db.Model(&models.Drug{}).Count(&drugs).Error; err != nil {
		t.Fatalf("count drugs: %v", err)
	}
	if err := db.Model(&models.AlternateIdentifier{}).Count(&altIDs).Error; err != nil {
		t.Fatalf("count alternate identifiers: %v", err)
	}
	if err := db.Model(&models.GeneAction{}).Count(&geneActions).Error; err != nil {
		t.Fatalf("count gene actions: %v", err)
	}
	return drugs, altIDs, geneActions
}

// StrPtr gibt einen Pointer auf s zurück.
func StrPtr(s string) *string {
	return &s
}
