package upload

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/response"
	"github.com/uploadgate/service/internal/session"
)

// formField is the multipart field carrying the file.
const formField = "file"

// maxMemory is how much of a multipart body is held in memory before the
// rest spills to temporary files.
const maxMemory = 32 << 20

// Handler holds HTTP handlers for upload submission.
type Handler struct {
	gateway  *Gateway
	sessions *session.Manager
	dest     Destination
}

// NewHandler creates a new upload Handler sending files to dest.
func NewHandler(gateway *Gateway, sessions *session.Manager, dest Destination) *Handler {
	return &Handler{gateway: gateway, sessions: sessions, dest: dest}
}

type uploadData struct {
	Filename string `json:"filename" example:"report.pdf"`
	Bucket   string `json:"bucket"   example:"uploads"`
}

// Submit handles the dashboard upload form. The outcome is queued as a flash
// message and the caller is sent back to the dashboard. It must run behind
// middleware.RequireSession.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	res := h.handle(r)

	f := session.Flash{Category: res.Category(), Message: res.FlashMessage()}
	if err := h.sessions.AddFlash(r, f); err != nil {
		log.WithError(err).Warn("failed to queue upload flash")
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Store the multipart field "file" in the configured bucket under its original filename. Requires a session whose user may upload.
//	@Tags			uploads
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	response.Envelope{data=uploadData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/uploads [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	res := h.handle(r)
	if !res.OK() {
		response.Error(w, res.HTTPStatus(), res.Message)
		return
	}
	response.Created(w, uploadData{Filename: res.Filename, Bucket: h.dest.BucketName})
}

// handle runs the gateway for r. The body is only read once the session is
// known to carry the upload right; until then the gateway's earlier checks
// decide the result on their own. A body that cannot be read is an
// UploadFailed carrying the read error.
func (h *Handler) handle(r *http.Request) Result {
	var sess *session.State
	if st, ok := session.FromContext(r.Context()); ok {
		sess = &st
	}
	if sess == nil || !sess.CanUpload {
		return h.gateway.Upload(r.Context(), sess, nil, h.dest)
	}

	req, cleanup, err := readFile(r)
	defer cleanup()
	if err != nil {
		log.WithError(err).WithField("identity", sess.Identity).Error("upload body could not be read")
		return failed(StatusUploadFailed, "", err.Error())
	}
	return h.gateway.Upload(r.Context(), sess, req, h.dest)
}

// readFile extracts the file part from a multipart body. It returns a nil
// Request when the body is not multipart or has no part named file. A part
// sent without a filename (an empty file input) yields a Request with an
// empty Filename. Any other read or parse failure is returned as an error.
func readFile(r *http.Request) (*Request, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.WithError(err).Warn("failed to remove multipart temp files")
		}
	}

	file, header, err := r.FormFile(formField)
	if errors.Is(err, http.ErrMissingFile) {
		if _, ok := r.MultipartForm.Value[formField]; ok {
			return &Request{}, cleanup, nil
		}
		return nil, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, err
	}

	return &Request{Filename: header.Filename, Content: file}, func() {
		_ = file.Close()
		cleanup()
	}, nil
}
