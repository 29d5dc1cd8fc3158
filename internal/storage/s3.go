package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the AWS S3 backend. Credentials come from the default
// provider chain (environment, shared config, instance role).
type S3Options struct {
	Region string
	// Endpoint overrides the service URL for S3-compatible providers.
	Endpoint     string
	UsePathStyle bool
}

// putter is the part of the transfer manager Put relies on.
type putter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage writes blobs to Amazon S3 through the transfer manager, which
// accepts streams of unknown length.
type S3Storage struct {
	uploader putter
}

// NewS3Storage loads the AWS configuration and builds the uploader.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return &S3Storage{uploader: manager.NewUploader(client)}, nil
}

// Put uploads r to bucket/blob.
func (s *S3Storage) Put(ctx context.Context, r io.Reader, bucket, blob string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(blob),
		Body:        r,
		ContentType: aws.String(detectContentType(blob)),
	})
	if err != nil {
		return fmt.Errorf("s3 put object bucket=%s key=%s: %w", bucket, blob, err)
	}
	return nil
}
