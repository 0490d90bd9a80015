package artifact

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kestrelci/kestrel/internal/config"
)

// Uploader pushes collected artifacts to an S3-compatible object store.
type Uploader struct {
	client *minio.Client
	bucket string
}

// NewUploader builds an uploader from the storage configuration.
// It returns nil (and no error) when no endpoint is configured.
func NewUploader(cfg config.StorageConfig) (*Uploader, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket if it does not exist.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %q: %w", u.bucket, err)
	}
	return nil
}

// Upload pushes one collected artifact under <run>/<cell>/<source>.
func (u *Uploader) Upload(ctx context.Context, runID, cell string, c Collected) error {
	key := filepath.ToSlash(filepath.Join(runID, sanitize(cell), c.Source))
	_, err := u.client.FPutObject(ctx, u.bucket, key, c.Dest, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
