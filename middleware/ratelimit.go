package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/nightscribe/authcore/rate"
)

// KeyFunc derives the rate-limit key for a request. The default keys by
// client IP.
type KeyFunc func(r *http.Request) string

// ClientIPKey keys by the remote address, preferring X-Forwarded-For when a
// proxy set it.
func ClientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects over-budget requests with 429 and a Retry-After hint.
// A counter-store failure fails open: limiting is abuse dampening, not a
// security boundary, and must never take the endpoint down with it.
func RateLimit(limiter *rate.Limiter, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
