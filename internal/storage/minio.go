package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MinioStorage writes blobs to MinIO or any other S3-compatible service.
type MinioStorage struct {
	client *minio.Client
}

// NewMinioStorage creates a MinIO client. It does not contact the server.
func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStorage{client: client}, nil
}

// EnsureBucket creates bucket if it does not exist yet.
func (s *MinioStorage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	log.Printf("storage: created bucket %q", bucket)
	return nil
}

// Put streams r to bucket/blob. The size is unknown up front, so the client
// switches to a multipart upload for large bodies.
func (s *MinioStorage) Put(ctx context.Context, r io.Reader, bucket, blob string) error {
	_, err := s.client.PutObject(ctx, bucket, blob, r, -1, minio.PutObjectOptions{
		ContentType: detectContentType(blob),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", blob, err)
	}
	return nil
}
