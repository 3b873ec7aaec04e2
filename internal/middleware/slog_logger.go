// Package middleware provides the HTTP middleware of the FleetOps API: request
// logging, CORS, body limits and bearer-token authentication.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewSlogLogger returns a middleware that writes one structured line per
// request: method, path, status, bytes written, duration, request id and,
// when the request was authenticated, the caller's subject and role.
//
// Wire it after chimiddleware.RequestID. Server errors are logged at error
// level, client errors at warn.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Authenticate runs further down the chain, so it reports the
			// principal back through this slot.
			slot := &principalSlot{}
			next.ServeHTTP(ww, r.WithContext(withPrincipalSlot(r.Context(), slot)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if p, ok := slot.get(); ok {
				attrs = append(attrs, "subject", p.Subject, "role", string(p.Role))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "request", attrs...)
		})
	}
}
