package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/domain"
)

// UserHandler handles registration and the admin password endpoints.
type UserHandler struct {
	svc account.Service
}

func NewUserHandler(svc account.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req, application(r))
	if err != nil && !errors.Is(err, domain.ErrSyncFailed) {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSafeUser(u))
}

// ResetPassword replaces every password of the user in the path.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "id"), req.NewPassword, application(r)); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset"})
}

// RevokePasswords disables the passwords of the user in the path.
func (h *UserHandler) RevokePasswords(w http.ResponseWriter, r *http.Request) {
	var req domain.RevokePasswordsRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.svc.RevokePasswords(r.Context(), chi.URLParam(r, "id"), req.Reason, req.Application)
	if err != nil && !errors.Is(err, domain.ErrSyncFailed) {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RevokeEnvelope{Revoked: n})
}
