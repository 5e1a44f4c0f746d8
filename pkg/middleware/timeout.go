package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Timeout bounds each request to the watch service's configured deadline.
// The stats endpoint sorts recorded latencies under a lock, so an
// aggregator holding millions of samples could otherwise pin a request
// indefinitely. If the handler has not written by the deadline the client
// gets a 504; the handler keeps running until its context cancellation
// propagates.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "http-timeout")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			cw := &checkedWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(cw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if cw.wrote.Load() {
					return
				}
				logger.Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"limit", limit,
				)
				http.Error(w, `{"error":"request timed out"}`, http.StatusGatewayTimeout)
			}
		})
	}
}

// checkedWriter records whether the inner handler produced any output, so
// the timeout path does not write a second response onto a started one.
type checkedWriter struct {
	http.ResponseWriter
	wrote atomic.Bool
}

func (cw *checkedWriter) WriteHeader(code int) {
	cw.wrote.Store(true)
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *checkedWriter) Write(b []byte) (int, error) {
	cw.wrote.Store(true)
	return cw.ResponseWriter.Write(b)
}
