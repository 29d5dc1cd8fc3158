package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/uploadgate/service/internal/auth"
	appMiddleware "github.com/uploadgate/service/internal/middleware"
	"github.com/uploadgate/service/internal/session"
	"github.com/uploadgate/service/internal/upload"
	"github.com/uploadgate/service/internal/web"
)

type handlers struct {
	sessions *session.Manager
	auth     *auth.Handler
	upload   *upload.Handler
	web      *web.Handler
}

func newRouter(h handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appMiddleware.LoadSession(h.sessions))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Pages
	r.Get("/", h.web.Intro)
	r.Get("/login", h.auth.LoginPage)
	r.Post("/login", h.auth.LoginForm)
	r.Get("/logout", h.auth.LogoutPage)
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireSession("/login"))
		r.Get("/dashboard", h.web.Dashboard)
		r.Post("/dashboard", h.upload.Submit)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.auth.Login)
			r.Post("/logout", h.auth.Logout)
		})
		r.With(appMiddleware.RequireSessionAPI).Get("/session", h.auth.Session)

		// The gateway answers unauthenticated uploads itself.
		r.Post("/uploads", h.upload.Upload)
	})

	return r
}
