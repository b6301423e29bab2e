package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("too many requests")

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s from=%s dur=%s", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// rateLimitMiddleware sheds load with one token bucket shared by every
// client.
func rateLimitMiddleware(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
