// Package middleware holds the service-specific HTTP middleware applied by
// the router.
package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/ratelimit"
)

// RateLimit rejects requests to the given paths once the client IP has used
// up its tokens. Other paths pass straight through.
func RateLimit(limiter *ratelimit.Limiter, paths ...string) func(http.Handler) http.Handler {
	limited := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		limited[p] = struct{}{}
	}
	retryAfter := strconv.Itoa(int(math.Ceil(limiter.RetryAfter().Seconds())))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := limited[r.URL.Path]; !ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
					"code":  "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
