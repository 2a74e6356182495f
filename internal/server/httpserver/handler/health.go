package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. It fails while the store is unreachable.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.Warn("readiness check failed", "error", err)
			h.writeError(w, r, http.StatusServiceUnavailable,
				domain.ErrServiceUnavailable.Code, domain.ErrServiceUnavailable.Message)
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
