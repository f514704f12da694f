package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/veil/pkg/proxy/types"
)

// RecoveryMiddleware converts a handler panic into a 500 in the gateway's
// error format. The panic value and stack are logged; the client only sees
// a generic message because the value may hold request text.
//
// http.ErrAbortHandler is re-raised so net/http aborts the connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "handler panic",
				"panic", rec,
				"request_id", w.Header().Get(RequestIDHeader),
				"method", r.Method,
				"path", logPath(r.URL.Path),
				"stack", string(debug.Stack()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(types.NewServerError("internal error"))
		}()

		next.ServeHTTP(w, r)
	})
}
