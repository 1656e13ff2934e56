package http

import (
	"context"

	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/application/recovery"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
)

// HealthChecker is the minimal interface the smoke check requires from the user store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TokenVerifier validates bearer tokens for the authenticated routes.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Accounts    account.Service
	Recovery    recovery.Service // nil leaves the recovery routes unmounted
	Health      HealthChecker
	JWTProvider TokenVerifier
}
