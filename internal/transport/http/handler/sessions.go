package handler

import (
	"net/http"

	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/domain"
)

// SessionHandler handles login.
type SessionHandler struct {
	svc account.Service
}

func NewSessionHandler(svc account.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req, application(r))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:    result.Bearer,
		ExpiresAt: result.ExpiresAt,
		User:      toSafeUser(result.User),
	})
}
