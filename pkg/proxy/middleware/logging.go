package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// sessionRoute is the prefix of routes whose trailing segment is a session ID.
const sessionRoute = "/v1/sessions/"

// LoggingMiddleware writes one line per request: method, path, status,
// response size and duration. Bodies are never logged. The request ID and
// caller come from the context through the logging handler.
//
// 5xx responses log at error level and 4xx at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newStatusRecorder(w)

		next.ServeHTTP(rw, r)

		status := rw.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.Log(r.Context(), level, "request completed",
			"method", r.Method,
			"path", logPath(r.URL.Path),
			"status", status,
			"bytes", rw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// logPath hides the session ID in session routes.
func logPath(path string) string {
	if strings.HasPrefix(path, sessionRoute) && len(path) > len(sessionRoute) {
		return sessionRoute + "{id}"
	}
	return path
}
