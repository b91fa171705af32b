package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/review-insight-backend/config"
)

// ImageStore keeps the original review screenshots for provenance.
type ImageStore interface {
	// Save stores data and returns the path or key recorded on the review.
	Save(ctx context.Context, filename string, info *ImageInfo, data []byte) (string, error)
}

// NewImageStore selects the store named by cfg.Storage.Driver.
func NewImageStore(cfg *config.Config) (ImageStore, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		return NewLocalImageStore(cfg.Storage.LocalDir)
	case "s3":
		return NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// objectKey builds screenshots/2026/01/03/<uuid>-<name>.<ext>
func objectKey(now time.Time, filename string, info *ImageInfo) string {
	name := uuid.New().String()
	if base := safeBase(filename); base != "" {
		name += "-" + base
	}
	return fmt.Sprintf("screenshots/%s/%s%s", now.UTC().Format("2006/01/02"), name, info.Extension())
}
