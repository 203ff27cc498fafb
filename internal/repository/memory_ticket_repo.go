package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. Tickets do not
// survive a restart, which only means an outstanding message is never
// deleted if the bot stops inside its retention window.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	now     func() time.Time

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr   error
	CompleteErr error
}

func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryTicketRepository) Create(_ context.Context, t *domain.Ticket) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tickets[t.ID] = &clone
	return nil
}

func (m *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MemoryTicketRepository) List(_ context.Context, f domain.TicketFilter) ([]*domain.Ticket, error) {
	return m.collect(func(t *domain.Ticket) bool {
		return f.Status == nil || t.Status == *f.Status
	}, f.Limit), nil
}

func (m *MemoryTicketRepository) Claim(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != domain.TicketOutstanding {
		return domain.ErrTicketNotClaimable
	}
	t.Status = domain.TicketDeleting
	t.UpdatedAt = m.now()
	return nil
}

func (m *MemoryTicketRepository) Complete(_ context.Context, id string, status domain.TicketStatus, errMsg *string) error {
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	t.ErrorMessage = errMsg
	t.UpdatedAt = m.now()
	return nil
}

func (m *MemoryTicketRepository) FindOutstanding(_ context.Context) ([]*domain.Ticket, error) {
	return m.collect(func(t *domain.Ticket) bool {
		return t.Status == domain.TicketOutstanding
	}, 0), nil
}

func (m *MemoryTicketRepository) FindOverdue(_ context.Context, before time.Time) ([]*domain.Ticket, error) {
	return m.collect(func(t *domain.Ticket) bool {
		return t.Status == domain.TicketOutstanding && !t.DeleteAt.After(before)
	}, 0), nil
}

// collect returns clones ordered by DeleteAt, matching the SQL ORDER BY.
func (m *MemoryTicketRepository) collect(keep func(*domain.Ticket) bool, limit int) []*domain.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Ticket
	for _, t := range m.tickets {
		if keep(t) {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeleteAt.Before(out[j].DeleteAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ TicketRepository = (*MemoryTicketRepository)(nil)
