// Package middleware provides reusable HTTP middleware for the server.
package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/session"
)

// Logger logs one structured line per request once the handler returns.
// Handlers below LoadSession contribute the caller's identity.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		holder := &identityHolder{}
		next.ServeHTTP(ww, r.WithContext(withIdentityHolder(r.Context(), holder)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := log.Fields{
			"request_id":  chiMiddleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"remote_addr": r.RemoteAddr,
		}
		if holder.identity != "" {
			fields["identity"] = holder.identity
		}
		log.WithFields(fields).Info("request.complete")
	})
}

// recordIdentity notes st's identity for the request log line.
func recordIdentity(r *http.Request, st session.State) {
	if h, ok := r.Context().Value(identityKey).(*identityHolder); ok {
		h.identity = st.Identity
	}
}
