// Package web renders the HTML pages around the login and upload flows.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"intro", "login", "dashboard"}

// Page is the data every template receives.
type Page struct {
	Username  string
	CanUpload bool
	Flashes   []session.Flash
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page against the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name with data. The page is rendered into a buffer
// first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Page) {
	t, ok := r.pages[name]
	if !ok {
		log.WithField("page", name).Error("unknown page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.WithError(err).WithField("page", name).Error("render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Handler serves the pages that are not part of a form submission.
type Handler struct {
	render   *Renderer
	sessions *session.Manager
}

// NewHandler creates a web Handler.
func NewHandler(render *Renderer, sessions *session.Manager) *Handler {
	return &Handler{render: render, sessions: sessions}
}

// Intro renders the landing page.
func (h *Handler) Intro(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "intro", Page{})
}

// Dashboard renders the signed-in view and drains pending flashes. It must
// run behind middleware.RequireSession.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	st, _ := session.FromContext(r.Context())

	flashes, err := h.sessions.PopFlashes(r)
	if err != nil {
		log.WithError(err).Warn("failed to read flashes")
	}

	h.render.Render(w, http.StatusOK, "dashboard", Page{
		Username:  st.Identity,
		CanUpload: st.CanUpload,
		Flashes:   flashes,
	})
}
