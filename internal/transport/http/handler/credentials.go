package handler

import (
	"net/http"

	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/transport/http/middleware"
)

// CredentialHandler serves the caller's own passwords.
type CredentialHandler struct {
	svc account.Service
}

func NewCredentialHandler(svc account.Service) *CredentialHandler {
	return &CredentialHandler{svc: svc}
}

func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	creds, err := h.svc.ListCredentials(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if creds == nil {
		creds = domain.Credentials{}
	}
	writeJSON(w, http.StatusOK, CredentialsEnvelope{Data: creds})
}

func (h *CredentialHandler) AddPassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.AddPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.AddPassword(r.Context(), claims.UserID, req.NewPassword, application(r)); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "password added"})
}

func (h *CredentialHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword, application(r)); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}
