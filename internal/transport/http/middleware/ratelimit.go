package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

type RateLimiter interface {
	Allow(ctx context.Context, scope, identity string, rule redis.Rule) (redis.Decision, error)
}

// RateLimit applies rule per client IP under scope. A nil limiter disables
// it; limiter failures fail open.
func RateLimit(limiter RateLimiter, scope string, rule redis.Rule, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rule.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := limiter.Allow(r.Context(), scope, "ip:"+clientIP(r), rule)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			if !dec.Allowed {
				if secs := int(dec.RetryAfter.Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				} else {
					w.Header().Set("Retry-After", "1")
				}
				RateLimitedTotal.WithLabelValues(scope).Inc()
				writeErr(w, r, domain.ErrRateLimited(scope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts RemoteAddr only; chi's RealIP runs first when the service
// sits behind a proxy.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
