package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"drug-info/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// Endpoint beschreibt einen S3-kompatiblen Speicher (AWS, Strato, MinIO, ...).
type Endpoint struct {
	URL       string
	Region    string
	AccessKey string
	SecretKey string
}

// ReportEndpoint liest den Endpunkt des Report-Archivs aus der Konfiguration.
func ReportEndpoint(cfg *config.Config) Endpoint {
	return Endpoint{
		URL:       cfg.ReportS3URL,
		Region:    cfg.ReportS3Region,
		AccessKey: cfg.ReportS3Key,
		SecretKey: cfg.ReportS3Secret,
	}
}

// NewS3Client erstellt einen S3-Client mit statischen Zugangsdaten.
// Ist eine URL gesetzt, wird Path-Style gegen diesen Endpunkt verwendet.
func NewS3Client(ctx context.Context, ep Endpoint, optFns ...func(*s3.Options)) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(ep.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ep.AccessKey, ep.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := []func(*s3.Options){func(o *s3.Options) {
		if ep.URL != "" {
			o.BaseEndpoint = aws.String(ep.URL)
			o.UsePathStyle = true
		}
	}}
	return s3.NewFromConfig(awsCfg, append(opts, optFns...)...), nil
}

// UploadFile lädt data unter key hoch.
func UploadFile(ctx context.Context, client *s3.Client, bucket, key, contentType string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// RotateObjects behält die keep neuesten Objekte unter prefix und löscht den Rest.
// Fehler beim Löschen einzelner Objekte werden nur geloggt.
func RotateObjects(ctx context.Context, client *s3.Client, bucket, prefix string, keep int, logger *zap.Logger) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("rotate s3://%s/%s: keep must not be negative, got %d", bucket, prefix, keep)
	}

	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		objects = append(objects, page.Contents...)
	}

	if len(objects) <= keep {
		logger.Info("Keine Rotation nötig", zap.Int("objects", len(objects)), zap.Int("keep", keep))
		return 0, nil
	}

	sort.Slice(objects, func(i, j int) bool {
		ti, tj := aws.ToTime(objects[i].LastModified), aws.ToTime(objects[j].LastModified)
		if ti.Equal(tj) {
			return strings.Compare(aws.ToString(objects[i].Key), aws.ToString(objects[j].Key)) > 0
		}
		return ti.After(tj)
	})

	deleted := 0
	for _, obj := range objects[keep:] {
		logger.Info("Lösche altes Objekt", zap.String("key", aws.ToString(obj.Key)))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		})
		if err != nil {
			logger.Warn("Objekt konnte nicht gelöscht werden", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
