package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/domain"
)

// PasswordRecoveryHandler handles the password recovery flow endpoints.
type PasswordRecoveryHandler struct {
	svc recovery.Service
}

func NewPasswordRecoveryHandler(svc recovery.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.PasswordRecoveryRequest
		if !decode(w, r, &req) {
			return
		}
		if err := h.svc.RequestPasswordRecovery(r.Context(), req); err != nil {
			httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if the address is registered, a code has been sent"})
	case "confirm":
		var req domain.PasswordRecoveryConfirmRequest
		if !decode(w, r, &req) {
			return
		}
		err := h.svc.ConfirmPasswordRecovery(r.Context(), req)
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid or expired code")
			return
		}
		if err != nil {
			httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
