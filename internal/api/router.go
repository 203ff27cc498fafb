package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/api/handler"
	apimw "github.com/notifyhub/role-manager-bot/internal/api/middleware"
	"github.com/notifyhub/role-manager-bot/internal/repository"
)

// NewRouter wires the operational HTTP surface: health, metrics and
// read-only views of pending role sets and deletion tickets.
func NewRouter(
	pending handler.PendingSource,
	tickets repository.TicketRepository,
	reg prometheus.Gatherer,
	startedAt time.Time,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	hh := handler.NewHealthHandler(startedAt)
	ph := handler.NewPendingHandler(pending)
	th := handler.NewTicketHandler(tickets, logger)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pending", ph.GetPending)
		r.Get("/tickets", th.List)
		r.Get("/tickets/{id}", th.GetByID)
	})

	return r
}
