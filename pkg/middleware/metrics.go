package middleware

import (
	"net/http"
	"time"
)

// RequestObserver receives one observation per completed request. Route is
// the matched ServeMux pattern, or empty when no route matched.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics returns middleware that reports each request to observer.
func Metrics(observer RequestObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			observer.ObserveRequest(r.Method, r.Pattern, rec.Status(), time.Since(start))
		})
	}
}
