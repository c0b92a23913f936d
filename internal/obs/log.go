package obs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jkoblar/garrison/internal/ids"
)

// Logging logs each request with method, path, status, duration, and a
// generated request ID, which is also echoed in the X-Request-Id header.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ids.New()
		w.Header().Set("X-Request-Id", requestID)

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		slog.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", sw.code,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
