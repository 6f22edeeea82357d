// Command backup sichert die Drug-Datenbank per pg_dump nach S3 und rotiert alte Sicherungen.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"drug-info/storage"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const backupPrefix = "backup-"

type BackupConfig struct {
	PostgresHost     string `envconfig:"DB_HOST" required:"true"`
	PostgresPort     int    `envconfig:"DB_PORT" default:"5432"`
	PostgresUser     string `envconfig:"DB_USER" required:"true"`
	PostgresPassword string `envconfig:"DB_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"DB_NAME" required:"true"`
	BackupBucket     string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint   string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey  string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey  string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion     string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups      int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func (c BackupConfig) endpoint() storage.Endpoint {
	return storage.Endpoint{
		URL:       c.BackupEndpoint,
		Region:    c.BackupRegion,
		AccessKey: c.BackupAccessKey,
		SecretKey: c.BackupSecretKey,
	}
}

func (c BackupConfig) validate() error {
	if c.KeepBackups < 0 {
		return fmt.Errorf("KEEP_BACKUPS must not be negative, got %d", c.KeepBackups)
	}
	return nil
}

func backupKey(now time.Time) string {
	return fmt.Sprintf("%s%s.sql.gz", backupPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starte Backup-Prozess...")

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if err := cfg.validate(); err != nil {
		logging.Fatal("Ungültige Konfiguration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// 1. Datenbank-Dump erstellen
	dumpData, err := createDump(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des DB-Dumps", zap.Error(err))
	}

	// 2. S3-Client erstellen
	s3Client, err := storage.NewS3Client(ctx, cfg.endpoint())
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup nach S3 hochladen
	key := backupKey(time.Now())
	if err := storage.UploadFile(ctx, s3Client, cfg.BackupBucket, key, "application/gzip", dumpData); err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logging.Info("Backup hochgeladen", zap.String("bucket", cfg.BackupBucket), zap.String("key", key), zap.Int("bytes", len(dumpData)))

	// 4. Alte Backups rotieren; Reports im selben Bucket bleiben unberührt
	deleted, err := storage.RotateObjects(ctx, s3Client, cfg.BackupBucket, backupPrefix, cfg.KeepBackups, logging)
	if err != nil {
		logging.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}

	logging.Info("Backup-Prozess erfolgreich abgeschlossen.", zap.Int("deleted", deleted))
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.PostgresHost,
		"-p", fmt.Sprint(cfg.PostgresPort),
		"-U", cfg.PostgresUser,
		"-d", cfg.PostgresDB,
		"-w", // Passwort wird über PGPASSWORD bereitgestellt
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.PostgresPassword))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, stdout); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, stderr.String())
	}

	return buf.Bytes(), nil
}
