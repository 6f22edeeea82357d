package storage

import (
	"fmt"
	"time"

	"drug-info/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase verbindet sich mit PostgreSQL. Datenbankfehler werden in gorm-Sentinels
// (ErrDuplicatedKey, ErrForeignKeyViolated, ...) übersetzt.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.PipelineWorkers + 4)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
