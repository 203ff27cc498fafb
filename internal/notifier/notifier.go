package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/provider"
)

// TicketScheduler takes ownership of a sent message's self-deletion.
type TicketScheduler interface {
	Schedule(ctx context.Context, t *domain.Ticket)
}

// Notifier sends one verification message per flushed role set to the
// deployment's verification channel and hands the sent message over for
// deletion after the retention period.
type Notifier struct {
	sender       provider.MessageSender
	tickets      TicketScheduler
	channelID    string
	destinations domain.DestinationTable
	retention    time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Notifier)

// WithClock overrides time.Now; tests use it to pin the footer deadline.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func New(
	sender provider.MessageSender,
	tickets TicketScheduler,
	channelID string,
	destinations domain.DestinationTable,
	retention time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Notifier {
	n := &Notifier{
		sender:       sender,
		tickets:      tickets,
		channelID:    channelID,
		destinations: destinations,
		retention:    retention,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify composes and sends the message for roles. It never retries:
// the returned error is for the caller to log and count, after which the
// notification is dropped. No ticket is created unless the send succeeded.
func (n *Notifier) Notify(ctx context.Context, member domain.Member, roles []domain.Role) error {
	if len(roles) == 0 {
		return nil
	}

	if err := n.sender.Channel(ctx, n.channelID); err != nil {
		return fmt.Errorf("verification channel: %w", err)
	}

	deleteAt := n.now().UTC().Add(n.retention)
	msg := Compose(member, roles, n.destinations, deleteAt, n.retention)

	ref, err := n.sender.SendNotification(ctx, n.channelID, msg)
	if err != nil {
		return fmt.Errorf("send verification: %w", err)
	}

	sentAt := n.now().UTC()
	n.tickets.Schedule(ctx, &domain.Ticket{
		ID:        uuid.NewString(),
		ChannelID: ref.ChannelID,
		MessageID: ref.MessageID,
		MemberID:  member.ID,
		Status:    domain.TicketOutstanding,
		DeleteAt:  sentAt.Add(n.retention),
		CreatedAt: sentAt,
		UpdatedAt: sentAt,
	})

	n.logger.Info("verification notification sent",
		zap.String("member_id", member.ID),
		zap.String("message_id", ref.MessageID),
		zap.Int("roles", len(roles)),
	)
	return nil
}
