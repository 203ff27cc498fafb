package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/api"
	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/metrics"
	"github.com/notifyhub/role-manager-bot/internal/repository"
)

type staticPending map[domain.MemberID][]domain.Role

func (s staticPending) Pending() map[domain.MemberID][]domain.Role { return s }

func newRouter(t *testing.T) (http.Handler, *repository.MemoryTicketRepository) {
	t.Helper()
	repo := repository.NewMemoryTicketRepository()
	reg := prometheus.NewRegistry()
	metrics.New(reg, func() int { return 1 })

	pending := staticPending{"42": {{ID: "r1", Name: "Plugin One"}}}
	return api.NewRouter(pending, repo, reg, time.Now(), zap.NewNop()), repo
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	h, _ := newRouter(t)
	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("expected correlation id header")
	}
}

func TestRouter_CorrelationIDEchoed(t *testing.T) {
	h, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); len(got) != 36 {
		t.Fatalf("expected a fresh uuid for an oversized id, got %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := newRouter(t)
	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pending_members 1") {
		t.Fatalf("expected pending_members gauge, got %d: %s", rec.Code, rec.Body)
	}
}

func TestRouter_Pending(t *testing.T) {
	h, _ := newRouter(t)
	rec := get(t, h, "/api/v1/pending")

	var body struct {
		Members int                      `json:"members"`
		Pending map[string][]domain.Role `json:"pending"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Members != 1 || body.Pending["42"][0].Name != "Plugin One" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRouter_Tickets(t *testing.T) {
	h, repo := newRouter(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = repo.Create(ctx, &domain.Ticket{ID: "t1", Status: domain.TicketOutstanding, DeleteAt: now})
	_ = repo.Create(ctx, &domain.Ticket{ID: "t2", Status: domain.TicketGone, DeleteAt: now})

	rec := get(t, h, "/api/v1/tickets?status=gone")
	var list struct {
		Data  []domain.Ticket `json:"data"`
		Count int             `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Data[0].ID != "t2" {
		t.Fatalf("expected only t2, got %+v", list)
	}

	if rec := get(t, h, "/api/v1/tickets?status=bogus"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown status, got %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/tickets/t1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/tickets/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
