package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/erazemk/mbaromire/internal/auth"
)

// AdminMiddleware admits requests carrying the admin code as the admin_code
// query parameter, or an admin session token as a bearer token.
func AdminMiddleware(admin *auth.Admin) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("admin_code")
			token := bearerToken(r)

			if err := admin.Authorize(r.Context(), code, token); err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					slog.Warn("admin check failed", "path", r.URL.Path, "remote", r.RemoteAddr)
				}
				writeError(w, r, err, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// CORSMiddleware allows cross-origin requests from any origin, as the
// storefront is served separately.
func CORSMiddleware(next http.Handler) http.Handler {
	return cors.AllowAll().Handler(next)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"uri", redactedURI(r.URL),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

// redactedURI returns u's request URI with the admin code masked.
func redactedURI(u *url.URL) string {
	q := u.Query()
	if !q.Has("admin_code") {
		return u.RequestURI()
	}
	q.Set("admin_code", "REDACTED")
	c := *u
	c.RawQuery = q.Encode()
	return c.RequestURI()
}
