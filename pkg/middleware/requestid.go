package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/overlap-ml/neardup/pkg/logger"
)

// RequestID assigns a random identifier to each request, echoes it in the
// X-Request-ID response header, and stamps it into the request context so
// handler loggers carry it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRunID(r.Context(), id)))
	})
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
