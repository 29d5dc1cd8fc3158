package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrInvalidName is returned for bucket or blob names that would escape the
// storage root.
var ErrInvalidName = errors.New("invalid object name")

// LocalStorage keeps blobs on disk under <root>/<bucket>/<blob>. It stands in
// for a real object store in development.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// Put writes r to a temporary file and renames it into place, holding an
// exclusive lock on the blob so concurrent writers finish one at a time and
// the last one wins.
func (s *LocalStorage) Put(ctx context.Context, r io.Reader, bucket, blob string) error {
	dst, err := s.objectPath(bucket, blob)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	lock := flock.New(dst + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %q: %w", blob, err)
	}
	defer lock.Unlock() //nolint:errcheck

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Open returns the stored blob for reading.
func (s *LocalStorage) Open(bucket, blob string) (io.ReadCloser, error) {
	p, err := s.objectPath(bucket, blob)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *LocalStorage) objectPath(bucket, blob string) (string, error) {
	if !validName(bucket) || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidName, bucket)
	}
	if !validName(blob) {
		return "", fmt.Errorf("%w: blob %q", ErrInvalidName, blob)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(blob)), nil
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, ".lock") {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func detectContentType(blob string) string {
	if t := mime.TypeByExtension(path.Ext(blob)); t != "" {
		return t
	}
	return "application/octet-stream"
}
