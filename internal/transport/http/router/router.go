package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type UserHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Activate(w http.ResponseWriter, r *http.Request)
	Deactivate(w http.ResponseWriter, r *http.Request)
	SetRole(w http.ResponseWriter, r *http.Request)
	Roles(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Users  UserHandler

	// AuthMW verifies the bearer token; AnyMW / AdminMW resolve the user and
	// check its role.
	AuthMW  Middleware
	AnyMW   Middleware
	AdminMW Middleware

	// optional
	LoginRL    Middleware
	RegisterRL Middleware
	Metrics    http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.AnyMW == nil {
		return nil, fmt.Errorf("nil Any-role middleware")
	}
	if deps.AdminMW == nil {
		return nil, fmt.Errorf("nil Admin middleware")
	}
	loginRL := orPassThrough(deps.LoginRL)
	registerRL := orPassThrough(deps.RegisterRL)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/users", func(r chi.Router) {
		// public
		r.With(registerRL).Post("/", deps.Users.Register)
		r.With(loginRL).Post("/login", deps.Users.Login)

		// any authenticated role
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW, deps.AnyMW)
			r.Get("/", deps.Users.List)
			r.Get("/me", deps.Users.Me)
			r.Put("/{id}", deps.Users.Update) // admin or self, checked in handler
		})

		// admin
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW, deps.AdminMW)
			r.Post("/activate/{id}", deps.Users.Activate)
			r.Post("/deactivate/{id}", deps.Users.Deactivate)
			r.Post("/{id}/role", deps.Users.SetRole)
		})
	})

	r.With(deps.AuthMW, deps.AnyMW).Get("/api/roles", deps.Users.Roles)

	return r, nil
}

func orPassThrough(mw Middleware) Middleware {
	if mw != nil {
		return mw
	}
	return func(next http.Handler) http.Handler { return next }
}
