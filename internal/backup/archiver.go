package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

// S3API is the subset of the S3 client used by Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Archiver keeps a copy of every export in S3. If bucket is empty, all operations are no-ops.
type Archiver struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

func NewArchiver(s3Client S3API, bucket string, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if a bucket and client are configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.bucket != "" && a.s3Client != nil
}

// Key returns the object key for a snapshot taken at ts.
func Key(ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("backups/v1/%d/%02d/%02d/%s.json", ts.Year(), ts.Month(), ts.Day(), ts.Format("20060102T150405Z"))
}

// Put uploads snap and returns its key. Returns "" when disabled.
func (a *Archiver) Put(ctx context.Context, snap Snapshot) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("backup: marshal snapshot: %w", err)
	}
	key := Key(snap.Timestamp)
	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("backup: s3 put %s: %w", key, err)
	}
	a.logger.Info("archived backup to S3", "s3_key", key, "speakers", len(snap.Prospects), "logs", len(snap.AuditLog))
	return key, nil
}

// Get downloads the snapshot stored under key.
func (a *Archiver) Get(ctx context.Context, key string) (Snapshot, error) {
	if !a.Enabled() {
		return Snapshot{}, ErrArchiveDisabled
	}
	out, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: read %s: %w", key, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("backup: decode %s: %w", key, err)
	}
	return snap, nil
}
