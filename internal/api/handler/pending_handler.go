package handler

import (
	"net/http"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// PendingSource exposes the unflushed role sets.
type PendingSource interface {
	Pending() map[domain.MemberID][]domain.Role
}

// PendingHandler serves a read-only snapshot of members waiting for their
// settling timer. Counters live at /metrics.
type PendingHandler struct {
	src PendingSource
}

func NewPendingHandler(src PendingSource) *PendingHandler {
	return &PendingHandler{src: src}
}

// GetPending handles GET /api/v1/pending
//
// @Summary  Members with a pending verification notification
// @Tags     coalescing
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/pending [get]
func (h *PendingHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	pending := h.src.Pending()
	respondJSON(w, http.StatusOK, map[string]any{
		"members": len(pending),
		"pending": pending,
	})
}
