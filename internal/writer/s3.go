package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sigma-quantiphi/polymarket-pandas/internal/frame"
	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// S3Config carries the bucket settings and optional static credentials.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	KeyPrefix       string
	AccessKeyID     string
	SecretAccessKey string
	Compression     string
}

// S3Writer uploads parquet-serialized tables under partitioned keys.
type S3Writer struct {
	cfg    S3Config
	client *s3.Client
	log    *logger.Log
}

// NewS3Writer builds the client from the default AWS config chain, with
// static credentials when configured.
func NewS3Writer(ctx context.Context, cfg S3Config) (*S3Writer, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws configuration: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     cfg.Bucket,
		"region":     cfg.Region,
		"endpoint":   cfg.Endpoint,
		"path_style": cfg.PathStyle,
	}).Info("s3 writer initialized")

	return &S3Writer{cfg: cfg, client: client, log: log}, nil
}

// BatchKey builds the partitioned object key for one table batch:
// <prefix>/kind=<kind>/date=<yyyy-mm-dd>/<kind>_<ts>_<uuid>.parquet
func BatchKey(prefix string, kind string, at time.Time) string {
	at = at.UTC()
	filename := fmt.Sprintf("%s_%s_%s.parquet", kind, at.Format("20060102150405"), uuid.New().String())
	return path.Join(
		prefix,
		fmt.Sprintf("kind=%s", kind),
		fmt.Sprintf("date=%s", at.Format("2006-01-02")),
		filename,
	)
}

// WriteTable serializes the table and uploads it. Empty tables upload
// nothing and return an empty key.
func (w *S3Writer) WriteTable(ctx context.Context, t *frame.Table) (string, error) {
	data, err := TableToParquet(t, w.cfg.Compression)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	key := BatchKey(w.cfg.KeyPrefix, string(t.Kind), time.Now())
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"s3_key":    key,
		"data_size": len(data),
		"rows":      t.Len(),
	})

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type": "parquet",
			"compression":  w.cfg.Compression,
			"entity-kind":  string(t.Kind),
		},
	}
	if _, err := w.client.PutObject(ctx, input); err != nil {
		log.WithError(err).Error("failed to upload to S3")
		return "", fmt.Errorf("upload to S3 bucket %s: %w", w.cfg.Bucket, err)
	}
	log.Info("table uploaded")
	return key, nil
}
