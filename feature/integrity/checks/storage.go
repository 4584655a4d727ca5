package checks

import (
	"context"
	"fmt"

	"membership-portal/core/storage"

	"go.uber.org/zap"
)

// StorageReport describes the state of the photo bucket.
type StorageReport struct {
	Bucket  string `json:"bucket"`
	Exists  bool   `json:"exists"`
	Created bool   `json:"created,omitempty"`
	Status  string `json:"status"` // "ok", "missing", "fixed"
}

// CheckStorage reports whether bucket exists.
func CheckStorage(ctx context.Context, client storage.Client, bucket string) (*StorageReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	report := &StorageReport{Bucket: bucket, Exists: exists, Status: "ok"}
	if !exists {
		report.Status = "missing"
	}
	return report, nil
}

// FixStorage creates bucket when it is missing.
func FixStorage(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) (*StorageReport, error) {
	created, err := storage.EnsureBucket(ctx, client, bucket, region)
	if err != nil {
		return nil, err
	}

	report := &StorageReport{Bucket: bucket, Exists: true, Created: created, Status: "ok"}
	if created {
		logger.Info("Created missing bucket", zap.String("bucket", bucket))
		report.Status = "fixed"
	}
	return report, nil
}
