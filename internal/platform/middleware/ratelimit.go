package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"agripass/internal/platform/ratelimit"
	"agripass/pkg/requestcontext"
)

// RateLimit enforces a per-caller request budget. The caller key is the actor
// from the context when present, the client IP otherwise. A limiter failure
// lets the request through; availability wins over throttling accuracy.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := requestcontext.Actor(ctx)
			if key == "" {
				key = clientIP(r)
			}

			result, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limit_exceeded","error_description":"Too many requests. Please try again later."}`))
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
