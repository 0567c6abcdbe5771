package http_handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// Login handles POST /api/users/login.
//
// An unknown email is answered exactly like a wrong password. That masking
// covers unknown emails only: an inactive account, including every freshly
// registered one, reports inactive_account whatever the password, because
// the active check runs before the password check.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			err = domain.ErrInvalidCredentials()
		}
		middleware.LoginAttemptsTotal.WithLabelValues(outcome(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logger.WithCtx(r.Context()).Info().
		Int64("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.NewTokenResponse(res.Token))
}
