// Package session turns a credential lookup into per-caller session state
// and keeps that state between requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/uploadgate/service/internal/credential"
)

// ErrNoSession is returned when the caller has no live session. A caller that
// logged in with unknown credentials does have a session; it is simply not
// Verified and cannot upload.
var ErrNoSession = errors.New("no session")

// State is the identity and permission snapshot taken at login.
type State struct {
	Identity  string `json:"identity"`
	CanUpload bool   `json:"can_upload"`
	// Verified is true when Identity matched a stored credential.
	Verified bool `json:"verified"`
}

// Establish derives session state from a lookup. Unknown credentials still
// produce a session under the claimed username, without upload rights.
func Establish(username string, res credential.MatchResult) State {
	if !res.Matched {
		return State{Identity: username}
	}
	return State{
		Identity:  res.Record.Username,
		CanUpload: res.Record.CanUpload,
		Verified:  true,
	}
}

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Data is what a Store keeps per session id.
type Data struct {
	State     State     `json:"state"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type contextKey struct{}

// WithState returns a copy of ctx carrying st.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, contextKey{}, st)
}

// FromContext returns the session state stored by WithState.
func FromContext(ctx context.Context) (State, bool) {
	st, ok := ctx.Value(contextKey{}).(State)
	return st, ok
}
