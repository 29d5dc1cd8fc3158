package upload

import (
	"fmt"
	"net/http"

	"github.com/uploadgate/service/internal/session"
)

// Status classifies the outcome of an upload call.
type Status int

const (
	StatusSuccess Status = iota
	StatusUnauthenticated
	StatusForbidden
	StatusBadRequest
	StatusMisconfigured
	StatusUploadFailed
)

var statusNames = map[Status]string{
	StatusSuccess:         "success",
	StatusUnauthenticated: "unauthenticated",
	StatusForbidden:       "forbidden",
	StatusBadRequest:      "bad_request",
	StatusMisconfigured:   "misconfigured",
	StatusUploadFailed:    "upload_failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Caller-facing failure messages.
const (
	MsgUnauthenticated = "login required"
	MsgForbidden       = "not allowed to upload files"
	MsgNoFilePart      = "no file part in the request"
	MsgNoFileSelected  = "no file selected"
	MsgNoBucket        = "bucket name is not set"
)

// Result is the outcome of Gateway.Upload. Message holds the failure text;
// for UploadFailed it is the object store's error text, unmodified.
type Result struct {
	Status   Status
	Filename string
	Message  string
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Category returns the flash category for the result.
func (r Result) Category() string {
	if r.OK() {
		return session.FlashSuccess
	}
	return session.FlashError
}

// FlashMessage is the user-facing status line for the result.
func (r Result) FlashMessage() string {
	switch r.Status {
	case StatusSuccess:
		return fmt.Sprintf("File %s uploaded successfully!", r.Filename)
	case StatusUploadFailed:
		return "Error uploading file: " + r.Message
	default:
		return r.Message
	}
}

// HTTPStatus maps the result onto a response code for API callers.
func (r Result) HTTPStatus() int {
	switch r.Status {
	case StatusSuccess:
		return http.StatusCreated
	case StatusUnauthenticated:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusMisconfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func succeeded(filename string) Result {
	return Result{Status: StatusSuccess, Filename: filename}
}

func failed(status Status, filename, msg string) Result {
	return Result{Status: status, Filename: filename, Message: msg}
}
