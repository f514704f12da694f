package middleware

import "net/http"

// BodyLimitMiddleware caps request bodies at maxBytes with
// http.MaxBytesReader. Requests that declare a larger Content-Length are
// rejected with 413 before the handler runs. maxBytes <= 0 disables the
// limit.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeTooLarge(w)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooLarge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_, _ = w.Write([]byte(`{"error":{"message":"request body too large","type":"invalid_request_error","param":"body","code":"request_too_large"}}` + "\n"))
}
