package api

import (
	"log/slog"
	"net"
	"net/http"

	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/ratelimit"
)

// rateLimitMiddleware limits requests per client IP and answers 429 when a
// client exceeds its budget. It runs after middleware.RealIP, so RemoteAddr
// already reflects forwarding headers.
func rateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded", "ip", key, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeError(w, domainerrors.RateLimited("too many requests, try again later"))
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
