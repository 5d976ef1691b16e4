package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestObserver records one finished HTTP request.
type RequestObserver interface {
	RequestCompleted(ctx context.Context, method, route string, status int, elapsed time.Duration)
}

// Metrics reports every request under route, the pattern it was mounted at,
// so IDs in paths do not explode label cardinality.
func Metrics(obs RequestObserver, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			obs.RequestCompleted(r.Context(), r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
