package auth

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/credential"
	"github.com/uploadgate/service/internal/session"
)

// CredentialLookup is the part of credential.Store the login flow needs.
type CredentialLookup interface {
	Lookup(username, secret string) credential.MatchResult
}

// Service contains the login and logout flow.
type Service struct {
	creds    CredentialLookup
	sessions *session.Manager
}

// NewService creates a new auth Service.
func NewService(creds CredentialLookup, sessions *session.Manager) *Service {
	return &Service{creds: creds, sessions: sessions}
}

// Login checks the pair against the credential store and starts a session
// for the caller. Unknown pairs are not an error: they get a session under
// the claimed username, which may be empty, with no upload rights.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, username, secret string) (session.State, error) {
	res := s.creds.Lookup(username, secret)
	st := session.Establish(username, res)

	if err := s.sessions.Start(w, r, st); err != nil {
		return session.State{}, fmt.Errorf("start session: %w", err)
	}

	log.WithFields(log.Fields{
		"identity":   st.Identity,
		"verified":   st.Verified,
		"can_upload": st.CanUpload,
	}).Info("login")
	return st, nil
}

// Logout ends the caller's session. It succeeds when there was none.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.sessions.Clear(w, r); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
