package chi

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit returns a middleware enforcing a process-wide token bucket.
// Requests over the limit get a 429 with the standard error envelope.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, codeRateLimited,
					"too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
