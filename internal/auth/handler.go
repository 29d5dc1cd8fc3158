package auth

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/response"
	"github.com/uploadgate/service/internal/session"
	"github.com/uploadgate/service/internal/web"
)

// Handler holds HTTP handlers for the login and logout endpoints.
type Handler struct {
	svc    *Service
	render *web.Renderer
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service, render *web.Renderer) *Handler {
	return &Handler{svc: svc, render: render}
}

type loginRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password" example:"admin123"`
}

type logoutData struct {
	LoggedOut bool `json:"logged_out" example:"true"`
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "login", web.Page{})
}

// LoginForm handles the submitted login form and sends the caller to the
// dashboard, whether or not the pair matched a stored credential.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if !r.PostForm.Has("username") || !r.PostForm.Has("password") {
		http.Error(w, "missing username or password", http.StatusBadRequest)
		return
	}

	if _, err := h.svc.Login(w, r, r.PostForm.Get("username"), r.PostForm.Get("password")); err != nil {
		log.WithError(err).Error("login failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// LogoutPage ends the session and returns the caller to the intro page.
func (h *Handler) LogoutPage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(w, r); err != nil {
		log.WithError(err).Warn("logout failed")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Check a username/password pair and start a session cookie. Unknown pairs still get a session, with verified=false and no upload rights.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Username and password"
//	@Success		200		{object}	response.Envelope{data=session.State}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	st, err := h.svc.Login(w, r, req.Username, req.Password)
	if err != nil {
		log.WithError(err).Error("login failed")
		response.InternalError(w)
		return
	}

	response.OK(w, st)
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Destroy the caller's session and expire the cookie. Succeeds without a session.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=logoutData}
//	@Failure		500	{object}	response.Envelope
//	@Router			/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(w, r); err != nil {
		log.WithError(err).Error("logout failed")
		response.InternalError(w)
		return
	}
	response.OK(w, logoutData{LoggedOut: true})
}

// Session godoc
//
//	@Summary		Current session
//	@Description	Return the identity and upload permission captured at login.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=session.State}
//	@Failure		401	{object}	response.Envelope
//	@Router			/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "login required")
		return
	}
	response.OK(w, st)
}
