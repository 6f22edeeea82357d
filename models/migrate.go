package models

import "gorm.io/gorm"

// Migrate legt die Tabellen der Drug-Datenbank an bzw. passt sie an.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Drug{}, &AlternateIdentifier{}, &GeneAction{}, &IngestionRun{})
}
