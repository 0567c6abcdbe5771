package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

type UserHandler struct {
	svc *account.Service
}

func NewUserHandler(svc *account.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// List handles GET /api/users/
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserViews(users))
}

// Register handles POST /api/users/
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		middleware.RegistrationsTotal.WithLabelValues("invalid").Inc()
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RegistrationsTotal.WithLabelValues("invalid").Inc()
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		middleware.RegistrationsTotal.WithLabelValues(outcome(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	middleware.RegistrationsTotal.WithLabelValues("success").Inc()
	response.Created(w, dto.NewUserView(u))
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthorized())
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Update handles PUT /api/users/{id}. Admins may update anyone, everyone
// else only themselves.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthorized())
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := account.CanManage(actor, id); err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateUserRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Update(r.Context(), id, req.Username, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Activate handles POST /api/users/activate/{id}
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.svc.Activate)
}

// Deactivate handles POST /api/users/deactivate/{id}
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.svc.Deactivate)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64) (domain.User, error)) {
	id, err := userIDParam(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	u, err := apply(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// SetRole handles POST /api/users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthorized())
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.SetRoleRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}
	role, _ := domain.ParseRole(req.Role)

	u, err := h.svc.SetRole(r.Context(), actor, id, role)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Roles handles GET /api/roles
func (h *UserHandler) Roles(w http.ResponseWriter, r *http.Request) {
	response.OK(w, dto.NewRoleViews(domain.Roles()))
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidField("id", "must be a positive integer")
	}
	return id, nil
}

// outcome is the metrics label for a failed call.
func outcome(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "error"
}
