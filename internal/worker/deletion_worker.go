package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/provider"
	"github.com/notifyhub/role-manager-bot/internal/repository"
)

// DeletionWorker owns the self-deletion of sent verification messages.
//
// Every ticket gets its own one-shot timer. Tickets are also persisted so
// that Recover can re-arm them after a restart, and Run periodically sweeps
// for tickets whose timer was lost. Claim guarantees a single deletion
// attempt per ticket no matter which path gets there first.
type DeletionWorker struct {
	repo      repository.TicketRepository
	deleter   provider.MessageDeleter
	scheduler Scheduler
	interval  time.Duration
	grace     time.Duration
	logger    *zap.Logger
	now       func() time.Time

	// onResult is injected by main so the worker stays metrics-agnostic.
	onResult func(domain.TicketStatus)
}

type DeletionOption func(*DeletionWorker)

// WithDeletionClock overrides time.Now.
func WithDeletionClock(now func() time.Time) DeletionOption {
	return func(w *DeletionWorker) { w.now = now }
}

// WithSweep sets the overdue sweep interval and how late a ticket must be
// before the sweep takes it over from its timer.
func WithSweep(interval, grace time.Duration) DeletionOption {
	return func(w *DeletionWorker) {
		w.interval = interval
		w.grace = grace
	}
}

// NewDeletionWorker constructs the worker. onResult is optional (nil = no-op).
func NewDeletionWorker(
	repo repository.TicketRepository,
	deleter provider.MessageDeleter,
	scheduler Scheduler,
	logger *zap.Logger,
	onResult func(domain.TicketStatus),
	opts ...DeletionOption,
) *DeletionWorker {
	if onResult == nil {
		onResult = func(domain.TicketStatus) {}
	}
	w := &DeletionWorker{
		repo:      repo,
		deleter:   deleter,
		scheduler: scheduler,
		interval:  10 * time.Minute,
		grace:     time.Minute,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		onResult:  onResult,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Schedule persists t and arms its deletion timer. A persistence failure
// is logged; the timer is still armed, the message just won't survive a
// restart.
func (w *DeletionWorker) Schedule(ctx context.Context, t *domain.Ticket) {
	persisted := true
	if err := w.repo.Create(ctx, t); err != nil {
		persisted = false
		w.logger.Warn("could not persist deletion ticket",
			zap.String("ticket_id", t.ID),
			zap.String("message_id", t.MessageID),
			zap.Error(err),
		)
	}
	w.arm(t, persisted)
}

func (w *DeletionWorker) arm(t *domain.Ticket, persisted bool) {
	delay := t.DeleteAt.Sub(w.now())
	if delay < 0 {
		delay = 0
	}
	ticket := *t
	w.scheduler.After(delay, func(ctx context.Context) {
		w.delete(ctx, &ticket, persisted)
	})
}

// Recover re-arms every outstanding ticket. Tickets already past their
// deadline fire immediately.
func (w *DeletionWorker) Recover(ctx context.Context) error {
	tickets, err := w.repo.FindOutstanding(ctx)
	if err != nil {
		return err
	}
	for _, t := range tickets {
		w.arm(t, true)
	}
	if len(tickets) > 0 {
		w.logger.Info("re-armed outstanding deletion tickets", zap.Int("count", len(tickets)))
	}
	return nil
}

// Run ticks every interval and deletes tickets whose timer should have
// fired more than grace ago. Stops cleanly when ctx is cancelled.
func (w *DeletionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("deletion sweep started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("deletion sweep stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeletionWorker) sweep(ctx context.Context) {
	tickets, err := w.repo.FindOverdue(ctx, w.now().Add(-w.grace))
	if err != nil {
		w.logger.Error("deletion sweep error", zap.Error(err))
		return
	}
	for _, t := range tickets {
		w.delete(ctx, t, true)
	}
	if len(tickets) > 0 {
		w.logger.Info("swept overdue deletion tickets", zap.Int("count", len(tickets)))
	}
}

func (w *DeletionWorker) delete(ctx context.Context, t *domain.Ticket, persisted bool) {
	log := w.logger.With(
		zap.String("ticket_id", t.ID),
		zap.String("channel_id", t.ChannelID),
		zap.String("message_id", t.MessageID),
	)

	if persisted {
		if err := w.repo.Claim(ctx, t.ID); err != nil {
			if !errors.Is(err, domain.ErrTicketNotClaimable) {
				log.Error("failed to claim deletion ticket", zap.Error(err))
			}
			return
		}
	}

	status := domain.TicketDeleted
	var errMsg *string

	err := w.deleter.DeleteMessage(ctx, t.Message())
	switch {
	case err == nil:
		log.Debug("verification message deleted")
	case errors.Is(err, domain.ErrNotFound):
		status = domain.TicketGone
		log.Info("verification message already gone")
	default:
		status = domain.TicketFailed
		msg := err.Error()
		errMsg = &msg
		log.Error("failed to delete verification message", zap.Error(err))
	}

	w.onResult(status)

	if !persisted {
		return
	}
	if err := w.repo.Complete(ctx, t.ID, status, errMsg); err != nil {
		log.Error("failed to record deletion outcome", zap.Error(err))
	}
}
