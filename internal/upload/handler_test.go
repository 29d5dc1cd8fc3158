package upload

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uploadgate/service/internal/session"
)

type part struct {
	field, filename, body string
}

// multipartRequest builds a POST to target whose body holds parts.
func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type handlerFixture struct {
	handler  *Handler
	store    *mockObjectStore
	sessions *session.Manager
}

func newHandlerFixture(dest Destination) *handlerFixture {
	store := &mockObjectStore{}
	sessions := session.NewManager(session.NewMemoryStore(), []byte("secret"), session.Options{TTL: time.Hour})
	return &handlerFixture{
		handler:  NewHandler(NewGateway(store), sessions, dest),
		store:    store,
		sessions: sessions,
	}
}

// signIn attaches a live session for st to req, the way LoadSession would.
func (f *handlerFixture) signIn(t *testing.T, req *http.Request, st session.State) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, f.sessions.Start(rec, httptest.NewRequest(http.MethodPost, "/login", nil), st))
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req.WithContext(session.WithState(req.Context(), st))
}

func (f *handlerFixture) flashes(t *testing.T, req *http.Request) []session.Flash {
	t.Helper()
	got, err := f.sessions.PopFlashes(req)
	require.NoError(t, err)
	return got
}

func TestSubmitFlashesResult(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		parts []part
		dest  Destination
		err   error
		want  session.Flash
	}{
		{
			name:  "stored",
			state: *uploader,
			parts: []part{{field: "file", filename: "a.txt", body: "hello"}},
			dest:  bucket,
			want:  session.Flash{Category: session.FlashSuccess, Message: "File a.txt uploaded successfully!"},
		},
		{
			name:  "store error is passed through",
			state: *uploader,
			parts: []part{{field: "file", filename: "a.txt", body: "hello"}},
			dest:  bucket,
			err:   errors.New("AccessDenied"),
			want:  session.Flash{Category: session.FlashError, Message: "Error uploading file: AccessDenied"},
		},
		{
			name:  "forbidden",
			state: *viewer,
			parts: []part{{field: "file", filename: "a.txt", body: "hello"}},
			dest:  bucket,
			want:  session.Flash{Category: session.FlashError, Message: MsgForbidden},
		},
		{
			name:  "no file part",
			state: *uploader,
			parts: []part{{field: "other", filename: "a.txt", body: "hello"}},
			dest:  bucket,
			want:  session.Flash{Category: session.FlashError, Message: MsgNoFilePart},
		},
		{
			name:  "empty file input",
			state: *uploader,
			parts: []part{{field: "file", filename: "", body: ""}},
			dest:  bucket,
			want:  session.Flash{Category: session.FlashError, Message: MsgNoFileSelected},
		},
		{
			name:  "bucket not set",
			state: *uploader,
			parts: []part{{field: "file", filename: "a.txt", body: "hello"}},
			dest:  Destination{},
			want:  session.Flash{Category: session.FlashError, Message: MsgNoBucket},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(tt.dest)
			if tt.want.Category == session.FlashSuccess || tt.err != nil {
				f.store.On("Put", tt.dest.BucketName, "a.txt").Return(tt.err).Once()
			}

			req := f.signIn(t, multipartRequest(t, "/dashboard", tt.parts...), tt.state)
			rec := httptest.NewRecorder()
			f.handler.Submit(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
			assert.Equal(t, []session.Flash{tt.want}, f.flashes(t, req))
			f.store.AssertExpectations(t)
		})
	}
}

func TestSubmitStoresContent(t *testing.T) {
	f := newHandlerFixture(bucket)
	f.store.On("Put", "reports", "q3.csv").Return(nil).Once()

	req := f.signIn(t, multipartRequest(t, "/dashboard", part{field: "file", filename: "q3.csv", body: "a,b\n1,2\n"}), *uploader)
	f.handler.Submit(httptest.NewRecorder(), req)

	assert.Equal(t, "a,b\n1,2\n", string(f.store.body))
	f.store.AssertExpectations(t)
}

func TestSubmitNotMultipart(t *testing.T) {
	f := newHandlerFixture(bucket)

	req := httptest.NewRequest(http.MethodPost, "/dashboard", strings.NewReader("file=a.txt"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = f.signIn(t, req, *uploader)
	f.handler.Submit(httptest.NewRecorder(), req)

	assert.Equal(t, []session.Flash{{Category: session.FlashError, Message: MsgNoFilePart}}, f.flashes(t, req))
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUploadAPI(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newHandlerFixture(bucket)
		f.store.On("Put", "reports", "a.txt").Return(nil).Once()

		req := f.signIn(t, multipartRequest(t, "/api/v1/uploads", part{field: "file", filename: "a.txt", body: "x"}), *uploader)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"success":true,"data":{"filename":"a.txt","bucket":"reports"}}`, rec.Body.String())
	})

	t.Run("no session", func(t *testing.T) {
		f := newHandlerFixture(bucket)

		rec := httptest.NewRecorder()
		f.handler.Upload(rec, multipartRequest(t, "/api/v1/uploads", part{field: "file", filename: "a.txt", body: "x"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"login required"}`, rec.Body.String())
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newHandlerFixture(bucket)

		req := f.signIn(t, multipartRequest(t, "/api/v1/uploads"), *viewer)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newHandlerFixture(bucket)
		f.store.On("Put", "reports", "a.txt").Return(errors.New("NoSuchBucket: the bucket does not exist")).Once()

		req := f.signIn(t, multipartRequest(t, "/api/v1/uploads", part{field: "file", filename: "a.txt", body: "x"}), *uploader)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"NoSuchBucket: the bucket does not exist"}`, rec.Body.String())
	})

	t.Run("bucket not set", func(t *testing.T) {
		f := newHandlerFixture(Destination{})

		req := f.signIn(t, multipartRequest(t, "/api/v1/uploads", part{field: "file", filename: "a.txt", body: "x"}), *uploader)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// truncatedUpload returns a multipart request whose file part starts but
// whose body then fails with io.ErrUnexpectedEOF, like a dropped client.
func truncatedUpload(t *testing.T, target string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	w, err := mw.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte("x"), 512))
	require.NoError(t, err)

	body := io.MultiReader(&buf, iotest.ErrReader(io.ErrUnexpectedEOF))
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTruncatedBodyIsUploadFailure(t *testing.T) {
	t.Run("api", func(t *testing.T) {
		f := newHandlerFixture(bucket)

		req := f.signIn(t, truncatedUpload(t, "/api/v1/uploads"), *uploader)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), io.ErrUnexpectedEOF.Error())
		assert.NotContains(t, rec.Body.String(), MsgNoFilePart)
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("form", func(t *testing.T) {
		f := newHandlerFixture(bucket)

		req := f.signIn(t, truncatedUpload(t, "/dashboard"), *uploader)
		f.handler.Submit(httptest.NewRecorder(), req)

		flashes := f.flashes(t, req)
		require.Len(t, flashes, 1)
		assert.Equal(t, session.FlashError, flashes[0].Category)
		assert.Contains(t, flashes[0].Message, "Error uploading file: ")
		assert.Contains(t, flashes[0].Message, io.ErrUnexpectedEOF.Error())
	})

	t.Run("viewer is still forbidden", func(t *testing.T) {
		f := newHandlerFixture(bucket)

		req := f.signIn(t, truncatedUpload(t, "/api/v1/uploads"), *viewer)
		rec := httptest.NewRecorder()
		f.handler.Upload(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
