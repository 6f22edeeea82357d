package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Obergrenze für jeden einzelnen Schreibvorgang; Überschreitung bricht den Batch ab.
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	DrugBankBaseURL     string        `envconfig:"DRUGBANK_BASE_URL" default:"https://go.drugbank.com"`
	DrugBankIdentifiers string        `envconfig:"DRUGBANK_IDENTIFIERS" default:"DB00006,DB00619,DB01048,DB14093,DB00173,DB00734,DB00218,DB05196,DB09095,DB01053,DB00274"`
	DrugBankTimeout     time.Duration `envconfig:"DRUGBANK_TIMEOUT" default:"30s"`

	// Quelle für den Batch: "drugbank" oder "file"
	IngestSource    string `envconfig:"INGEST_SOURCE" default:"drugbank"`
	IngestFile      string `envconfig:"INGEST_FILE"`
	PipelineWorkers int    `envconfig:"PIPELINE_WORKERS" default:"1"`

	// Optionales Archiv der Batch-Reports. Leerer Bucket deaktiviert den Upload.
	ReportS3Key    string `envconfig:"REPORT_S3_KEY"`
	ReportS3Secret string `envconfig:"REPORT_S3_SECRET"`
	ReportS3URL    string `envconfig:"REPORT_S3_URL"`
	ReportS3Region string `envconfig:"REPORT_S3_REGION" default:"us-east-1"`
	ReportS3Bucket string `envconfig:"REPORT_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	// connect_timeout=0 hieße "ewig warten", daher mindestens eine Sekunde
	timeout := max(1, int(math.Ceil(c.StoreTimeout.Seconds())))
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=%d",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, timeout)
}

// Identifiers liefert die konfigurierten DrugBank-Kennungen ohne Leereinträge.
func (c *Config) Identifiers() []string {
	var ids []string
	for _, id := range strings.Split(c.DrugBankIdentifiers, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ReportArchiveEnabled meldet, ob Reports nach S3 geschrieben werden sollen.
func (c *Config) ReportArchiveEnabled() bool {
	return c.ReportS3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
