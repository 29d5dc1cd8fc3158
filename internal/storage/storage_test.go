package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uploadgate/service/internal/config"
)

func readBlob(t *testing.T, s *LocalStorage, bucket, blob string) string {
	t.Helper()
	f, err := s.Open(bucket, blob)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(b)
}

func TestLocalStoragePutAndOverwrite(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, strings.NewReader("first"), "reports", "report.csv"))
	assert.Equal(t, "first", readBlob(t, s, "reports", "report.csv"))

	require.NoError(t, s.Put(ctx, strings.NewReader("second"), "reports", "report.csv"))
	assert.Equal(t, "second", readBlob(t, s, "reports", "report.csv"))
}

func TestLocalStorageNestedBlob(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), strings.NewReader("x"), "reports", "2026/q3/report.csv"))

	_, err = os.Stat(filepath.Join(root, "reports", "2026", "q3", "report.csv"))
	assert.NoError(t, err)
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cases := []struct{ bucket, blob string }{
		{"reports", "../escape.txt"},
		{"reports", "a/../../escape.txt"},
		{"reports", "/etc/passwd"},
		{"reports", `..\escape.txt`},
		{"reports", "a//b"},
		{"reports", "report.csv.lock"},
		{"../up", "a.txt"},
		{"a/b", "a.txt"},
		{"", "a.txt"},
	}
	for _, c := range cases {
		err := s.Put(context.Background(), strings.NewReader("x"), c.bucket, c.blob)
		assert.ErrorIs(t, err, ErrInvalidName, "bucket=%q blob=%q", c.bucket, c.blob)
	}
}

func TestLocalStorageConcurrentPutsLastWriteWins(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	bodies := make([]string, 8)
	for i := range bodies {
		bodies[i] = strings.Repeat(fmt.Sprint(i), 64<<10)
	}

	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			assert.NoError(t, s.Put(context.Background(), strings.NewReader(body), "reports", "same.bin"))
		}(body)
	}
	wg.Wait()

	got := readBlob(t, s, "reports", "same.bin")
	assert.Contains(t, bodies, got, "stored blob must be exactly one complete upload")
}

func TestLocalStorageCancelledContext(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Put(ctx, strings.NewReader("x"), "reports", "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(root, "reports", "a.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", detectContentType("dir/file.pdf"))
	assert.Equal(t, "application/json", detectContentType("data.json"))
	assert.Equal(t, "application/octet-stream", detectContentType("no-extension"))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) Upload(ctx context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	b, _ := io.ReadAll(input.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{}, nil
}

func TestS3StoragePut(t *testing.T) {
	fake := &fakePutter{}
	s := &S3Storage{uploader: fake}

	require.NoError(t, s.Put(context.Background(), strings.NewReader("payload"), "reports", "report.csv"))

	assert.Equal(t, "reports", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "report.csv", aws.ToString(fake.input.Key))
	assert.Equal(t, detectContentType("report.csv"), aws.ToString(fake.input.ContentType))
	assert.Equal(t, "payload", fake.body)
}

func TestS3StoragePutError(t *testing.T) {
	fake := &fakePutter{err: errors.New("NoSuchBucket: The specified bucket does not exist")}
	s := &S3Storage{uploader: fake}

	err := s.Put(context.Background(), strings.NewReader("payload"), "missing", "report.csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchBucket: The specified bucket does not exist")
	assert.Contains(t, err.Error(), "bucket=missing key=report.csv")
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	local, err := New(ctx, &config.Config{ObjectStore: "local", LocalStoreDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, local)

	mc, err := New(ctx, &config.Config{ObjectStore: "minio", StorageEndpoint: "localhost:9000"})
	require.NoError(t, err)
	assert.IsType(t, &MinioStorage{}, mc)

	_, err = New(ctx, &config.Config{ObjectStore: "ftp"})
	assert.EqualError(t, err, `unknown object store "ftp"`)
}
