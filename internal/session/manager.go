package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultCookieName is the cookie carrying the signed session id.
const DefaultCookieName = "session"

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Manager issues, reads and clears sessions. The cookie holds only a signed
// session id; the State itself lives in the Store.
type Manager struct {
	store  Store
	secret []byte
	opts   Options
	now    func() time.Time
}

// NewManager creates a Manager signing cookies with secret.
func NewManager(store Store, secret []byte, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{store: store, secret: secret, opts: opts, now: time.Now}
}

// Start stores st under a fresh session id and sets the session cookie. Any
// session the request already carried is discarded first.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, st State) error {
	ctx := r.Context()

	if old, err := m.sessionID(r); err == nil {
		if err := m.store.Delete(ctx, old); err != nil {
			log.WithError(err).Warn("failed to discard previous session")
		}
	}

	id := uuid.NewString()
	now := m.now()
	expires := now.Add(m.opts.TTL)

	if err := m.store.Save(ctx, id, Data{State: st, ExpiresAt: expires}, m.opts.TTL); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	token, err := m.sign(id, now, expires)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the caller's session state, or ErrNoSession when the cookie
// is missing, forged, expired or no longer known to the store.
func (m *Manager) Read(r *http.Request) (State, error) {
	data, _, err := m.load(r)
	if err != nil {
		return State{}, err
	}
	return data.State, nil
}

// Clear destroys the caller's session and expires the cookie. It succeeds
// whether or not a session existed.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	id, err := m.sessionID(r)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// AddFlash queues a message for the caller's next PopFlashes.
func (m *Manager) AddFlash(r *http.Request, f Flash) error {
	data, id, err := m.load(r)
	if err != nil {
		return err
	}
	data.Flashes = append(data.Flashes, f)
	return m.save(r.Context(), id, data)
}

// PopFlashes returns and removes all queued messages.
func (m *Manager) PopFlashes(r *http.Request) ([]Flash, error) {
	data, id, err := m.load(r)
	if err != nil {
		return nil, err
	}
	if len(data.Flashes) == 0 {
		return nil, nil
	}
	flashes := data.Flashes
	data.Flashes = nil
	if err := m.save(r.Context(), id, data); err != nil {
		return nil, err
	}
	return flashes, nil
}

func (m *Manager) load(r *http.Request) (Data, string, error) {
	id, err := m.sessionID(r)
	if err != nil {
		return Data{}, "", ErrNoSession
	}
	data, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return Data{}, "", ErrNoSession
	}
	if err != nil {
		return Data{}, "", err
	}
	return data, id, nil
}

// save rewrites data keeping its original expiry.
func (m *Manager) save(ctx context.Context, id string, data Data) error {
	ttl := data.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return ErrNoSession
	}
	return m.store.Save(ctx, id, data, ttl)
}

func (m *Manager) sign(id string, issued, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// sessionID extracts and verifies the session id from the request cookie.
func (m *Manager) sessionID(r *http.Request) (string, error) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return "", ErrNoSession
	}
	return claims.ID, nil
}
