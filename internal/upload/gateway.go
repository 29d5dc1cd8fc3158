// Package upload gates file uploads on the session's permission flag and
// forwards accepted files to object storage.
package upload

import (
	"bytes"
	"context"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/session"
)

// ObjectStore accepts a named blob for a container (bucket).
type ObjectStore interface {
	Put(ctx context.Context, r io.Reader, container, blob string) error
}

// Request is one file submitted for upload. A nil *Request means the caller
// sent no file part at all.
type Request struct {
	Filename string
	Content  io.Reader
}

// Destination names where accepted files go.
type Destination struct {
	BucketName string
}

// Gateway enforces upload preconditions. It holds no per-call state and is
// safe for concurrent use.
type Gateway struct {
	store ObjectStore
}

// NewGateway creates a Gateway writing to store.
func NewGateway(store ObjectStore) *Gateway {
	return &Gateway{store: store}
}

// Upload runs the checks in order and stops at the first failure; the
// object store is only touched when all of them pass. Failures are final,
// nothing is retried.
func (g *Gateway) Upload(ctx context.Context, sess *session.State, req *Request, dest Destination) Result {
	if sess == nil {
		return failed(StatusUnauthenticated, "", MsgUnauthenticated)
	}
	if !sess.CanUpload {
		return failed(StatusForbidden, "", MsgForbidden)
	}
	if req == nil {
		return failed(StatusBadRequest, "", MsgNoFilePart)
	}
	if req.Filename == "" {
		return failed(StatusBadRequest, "", MsgNoFileSelected)
	}
	if dest.BucketName == "" {
		return failed(StatusMisconfigured, req.Filename, MsgNoBucket)
	}

	entry := log.WithFields(log.Fields{
		"identity": sess.Identity,
		"bucket":   dest.BucketName,
		"blob":     req.Filename,
	})

	content := req.Content
	if content == nil {
		content = bytes.NewReader(nil)
	}
	if err := g.store.Put(ctx, content, dest.BucketName, req.Filename); err != nil {
		entry.WithError(err).Error("upload failed")
		return failed(StatusUploadFailed, req.Filename, err.Error())
	}

	entry.Info("upload stored")
	return succeeded(req.Filename)
}
