package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"storefront/internal/handlers/render"
)

type rateLimiter interface {
	Allow(ctx context.Context, key string) (retryAfter int64, allowed bool, err error)
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// RateLimitMiddleware throttles by client address. A failing limiter lets
// the request pass, throttling is protection and not a dependency.
func RateLimitMiddleware(limiter rateLimiter, scope string, l warnLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			retryAfter, allowed, err := limiter.Allow(r.Context(), scope+":"+ClientIP(r))
			if err != nil {
				l.Warn("Rate limiter unavailable, request passed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address the request came from. Trusts X-Real-IP
// because the service runs behind its own proxy.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
