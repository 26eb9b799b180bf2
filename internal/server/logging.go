package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"
)

// withLogging tags every request with a generated id, echoes it back in
// X-Request-Id, and logs the request line with the salient headers.
func withLogging(logger *log.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger.Printf("REQ %s %s %s UA=%q From=%s", id, r.Method, r.URL.String(), r.UserAgent(), r.RemoteAddr)
		logHeader := func(name string) {
			if v := r.Header.Get(name); v != "" {
				logger.Printf("HDR %s %s: %s", id, name, v)
			}
		}
		logHeader("X-Forwarded-For")
		logHeader("Content-Type")
		logHeader("Content-Length")

		next.ServeHTTP(w, r)
	})
}
