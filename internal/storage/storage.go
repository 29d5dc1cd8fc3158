// Package storage provides the object store clients uploads are written to.
// Every backend is addressed by container (bucket) and blob name, and a
// second put to the same name replaces the first.
package storage

import (
	"context"
	"fmt"

	"github.com/uploadgate/service/internal/config"
	"github.com/uploadgate/service/internal/upload"
)

// New builds the backend selected by cfg.ObjectStore.
func New(ctx context.Context, cfg *config.Config) (upload.ObjectStore, error) {
	switch cfg.ObjectStore {
	case "minio":
		s, err := NewMinioStorage(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageUseSSL)
		if err != nil {
			return nil, err
		}
		if cfg.StorageCreateBucket && cfg.BucketName != "" {
			if err := s.EnsureBucket(ctx, cfg.BucketName); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "local":
		return NewLocalStorage(cfg.LocalStoreDir)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Region:       cfg.AWSRegion,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}
