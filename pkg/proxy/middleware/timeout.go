package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds each request with a context deadline. The
// handler runs on the serving goroutine and is expected to observe
// ctx.Done(); the pipeline does, and its failure maps to 504 through the
// normal error path. A timeout <= 0 disables the middleware.
//
// Example usage:
//
//	handler = TimeoutMiddleware(120 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
