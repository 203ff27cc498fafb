package repository

import (
	"context"
	"time"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// TicketRepository persists self-deleting message tickets.
// The pgx implementation is in pg_ticket_repo.go; memory_ticket_repo.go is
// used when no DATABASE_URL is configured and in tests.
type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter domain.TicketFilter) ([]*domain.Ticket, error)

	// Claim moves an outstanding ticket to deleting. Exactly one caller
	// wins; everyone else gets domain.ErrTicketNotClaimable.
	Claim(ctx context.Context, id string) error
	// Complete records the outcome of the single deletion attempt.
	Complete(ctx context.Context, id string, status domain.TicketStatus, errMsg *string) error

	FindOutstanding(ctx context.Context) ([]*domain.Ticket, error)
	FindOverdue(ctx context.Context, before time.Time) ([]*domain.Ticket, error)
}
