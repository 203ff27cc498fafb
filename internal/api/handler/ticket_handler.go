package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/role-manager-bot/internal/api/middleware"
	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/repository"
)

const (
	defaultTicketLimit = 50
	maxTicketLimit     = 500
)

// TicketHandler exposes deletion tickets read-only.
type TicketHandler struct {
	repo   repository.TicketRepository
	logger *zap.Logger
}

func NewTicketHandler(repo repository.TicketRepository, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{repo: repo, logger: logger}
}

// List handles GET /api/v1/tickets
//
// @Summary  List self-deletion tickets
// @Tags     tickets
// @Produce  json
// @Param    status  query     string  false  "Filter by status"
// @Param    limit   query     int     false  "Max items (default 50, max 500)"
// @Success  200     {object}  map[string]any
// @Failure  422     {object}  map[string]string
// @Router   /api/v1/tickets [get]
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTicketFilter(r)
	if err != nil {
		mapError(w, err)
		return
	}

	tickets, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list tickets failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	if tickets == nil {
		tickets = []*domain.Ticket{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  tickets,
		"count": len(tickets),
		"limit": filter.Limit,
	})
}

// GetByID handles GET /api/v1/tickets/{id}
//
// @Summary  Get a ticket by ID
// @Tags     tickets
// @Produce  json
// @Param    id   path      string  true  "Ticket UUID"
// @Success  200  {object}  domain.Ticket
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tickets/{id} [get]
func (h *TicketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	t, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func parseTicketFilter(r *http.Request) (domain.TicketFilter, error) {
	q := r.URL.Query()
	filter := domain.TicketFilter{Limit: defaultTicketLimit}

	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= maxTicketLimit {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.TicketStatus(s)
		if !st.IsValid() {
			return filter, fmt.Errorf("%q: %w", s, domain.ErrInvalidStatus)
		}
		filter.Status = &st
	}
	return filter, nil
}
