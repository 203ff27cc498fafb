package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

const ticketColumns = `id, channel_id, message_id, member_id, status, delete_at,
	       error_message, created_at, updated_at`

type pgTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPgTicketRepository returns a TicketRepository backed by PostgreSQL.
func NewPgTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &pgTicketRepository{pool: pool}
}

func (r *pgTicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_tickets
			(id, channel_id, message_id, member_id, status, delete_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.ChannelID, t.MessageID, t.MemberID, t.Status, t.DeleteAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *pgTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM notification_tickets WHERE id = $1`, id)

	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *pgTicketRepository) List(ctx context.Context, f domain.TicketFilter) ([]*domain.Ticket, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		rows pgx.Rows
		err  error
	)
	if f.Status != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+ticketColumns+`
			FROM notification_tickets
			WHERE status = $1
			ORDER BY delete_at ASC
			LIMIT $2`, *f.Status, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+ticketColumns+`
			FROM notification_tickets
			ORDER BY delete_at ASC
			LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Claim relies on the conditional UPDATE being atomic: two concurrent
// claimers cannot both see status = 'outstanding'.
func (r *pgTicketRepository) Claim(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_tickets
		SET status = 'deleting', updated_at = NOW()
		WHERE id = $1 AND status = 'outstanding'`, id)
	if err != nil {
		return fmt.Errorf("claim ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotClaimable
	}
	return nil
}

func (r *pgTicketRepository) Complete(ctx context.Context, id string, status domain.TicketStatus, errMsg *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_tickets
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3`, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete ticket: %w", err)
	}
	return nil
}

func (r *pgTicketRepository) FindOutstanding(ctx context.Context) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM notification_tickets
		WHERE status = 'outstanding'
		ORDER BY delete_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("find outstanding tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *pgTicketRepository) FindOverdue(ctx context.Context, before time.Time) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM notification_tickets
		WHERE status = 'outstanding'
		  AND delete_at <= $1
		ORDER BY delete_at ASC
		LIMIT 500`, before)
	if err != nil {
		return nil, fmt.Errorf("find overdue tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ---- helpers ----

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.ChannelID, &t.MessageID, &t.MemberID, &t.Status, &t.DeleteAt,
		&t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	var result []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
