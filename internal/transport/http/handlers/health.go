package http_handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// Pinger is a readiness dependency (database pool, redis client).
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	deps     map[string]Pinger
	optional map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps, optional: map[string]Pinger{}}
}

// WithOptional adds a dependency that is reported but never makes the
// service unready.
func (h *HealthHandler) WithOptional(name string, p Pinger) *HealthHandler {
	if p != nil {
		h.optional[name] = p
	}
	return h
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. Any failing required dependency makes it 503;
// a failing optional one shows up as "degraded".
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps)+len(h.optional))
	ready := true
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}
	for name, p := range h.optional {
		if err := p.Ping(ctx); err != nil {
			logger.WithCtx(r.Context()).Debug().Err(err).Str("dependency", name).Msg("optional dependency degraded")
			checks[name] = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "ready", "checks": checks}
	if !ready {
		body["status"] = "unavailable"
		response.WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	response.OK(w, body)
}
