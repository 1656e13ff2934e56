package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	store pinger
}

func NewHealthHandler(store pinger) *HealthHandler { return &HealthHandler{store: store} }

// Check serves /health-check/{action}: "ping" answers without touching
// dependencies, "smoke" also checks the user store.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "smoke":
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			slog.Warn("smoke check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "user store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
