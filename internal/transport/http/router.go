package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/transport/http/handler"
	appmiddleware "github.com/go-credential-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. Background work owned
// by the router stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.ApplicationHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on endpoints that take a password or
	// recovery code unauthenticated.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.Health)
	sessionH := handler.NewSessionHandler(deps.Accounts)
	userH := handler.NewUserHandler(deps.Accounts)
	credH := handler.NewCredentialHandler(deps.Accounts)

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Check)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		if deps.Recovery != nil {
			pwH := handler.NewPasswordRecoveryHandler(deps.Recovery)
			r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)
		}

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/credentials", credH.List)
			r.Post("/credentials/password", credH.AddPassword)
			r.Post("/credentials/password/change", credH.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/users/{id}/password/reset", userH.ResetPassword)
				r.Post("/users/{id}/password/revoke", userH.RevokePasswords)
			})
		})
	})

	return r
}
