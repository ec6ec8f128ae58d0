package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/metrics"
	"github.com/casimirlb/shortener/internal/ratelimit"
)

// RateLimit admits requests per caller identity: the authenticated
// user or service when Authenticate ran earlier in the chain, the
// client IP otherwise. Denials carry a Retry-After hint and touch no
// other state.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger, m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := limiterKey(r)

			decision, err := limiter.Admit(r.Context(), identity)
			if err != nil {
				// A broken limiter backend should not take the service
				// down with it.
				logger.Error("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				m.RecordRateLimited()
				logger.Warn("Rate limit exceeded",
					zap.String("identity", identity),
					zap.Duration("retry_after", decision.RetryAfter))

				seconds := int64(math.Ceil(decision.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limiterKey(r *http.Request) string {
	if identity, ok := IdentityFromContext(r.Context()); ok {
		if identity.Service {
			return "service"
		}
		return "user:" + identity.UserID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
