package middleware

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/response"
	"github.com/uploadgate/service/internal/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityKey contextKey = "identityHolder"

type identityHolder struct {
	identity string
}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, identityKey, h)
}

// LoadSession reads the caller's session, when there is one, and injects its
// state into the request context. Requests without a session pass through
// untouched; use RequireSession or RequireSessionAPI to reject them.
func LoadSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, err := m.Read(r)
			switch {
			case err == nil:
				recordIdentity(r, st)
				r = r.WithContext(session.WithState(r.Context(), st))
			case !errors.Is(err, session.ErrNoSession):
				log.WithError(err).Error("failed to read session")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession redirects callers without a session to loginPath.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSessionAPI answers 401 to callers without a session.
func RequireSessionAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			response.Unauthorized(w, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
