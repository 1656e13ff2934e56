package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/validate"
)

// ApplicationHeader names the client application a request acts for. It is
// recorded on credentials created by the request.
const ApplicationHeader = "X-Application"

const defaultApplication = "api"

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer    string    `json:"Bearer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	User      *SafeUser `json:"user,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// CredentialsEnvelope lists credential metadata, tombstones included.
type CredentialsEnvelope struct {
	Data  domain.Credentials `json:"data"`
	Error string             `json:"error,omitempty"`
}

// RevokeEnvelope reports how many credentials a revoke disabled.
type RevokeEnvelope struct {
	Revoked int    `json:"revoked"`
	Message string `json:"message,omitempty"`
}

// SafeUser is the public view of a user. Credential details are served only
// by the credentials endpoint.
type SafeUser struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	Created time.Time `json:"created"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{ID: u.UserID, Email: u.Email, Role: u.Role, Created: u.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func application(r *http.Request) string {
	if app := r.Header.Get(ApplicationHeader); app != "" {
		return app
	}
	return defaultApplication
}

// httpError maps a service error to a response. Verification service
// rejections and outages share one body.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSyncFailed):
		writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "saved, sync pending"})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict, please retry")
	case errors.Is(err, domain.ErrServiceRejected), errors.Is(err, domain.ErrServiceUnreachable):
		slog.WarnContext(r.Context(), "verification service failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "please try again")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
