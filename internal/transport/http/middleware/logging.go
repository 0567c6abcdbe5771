package middleware

import (
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// AccessLog writes one line per request. Health probes are logged at debug.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		l := logger.WithCtx(r.Context())
		ev := l.Info()
		switch {
		case r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics":
			ev = l.Debug()
		case rec.status >= http.StatusInternalServerError:
			ev = l.Error()
		case rec.status >= http.StatusBadRequest:
			ev = l.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}
