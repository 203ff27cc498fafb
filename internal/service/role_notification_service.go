package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/queue"
	"github.com/notifyhub/role-manager-bot/internal/worker"
)

// Notifier delivers the consolidated message for one flush.
type Notifier interface {
	Notify(ctx context.Context, member domain.Member, roles []domain.Role) error
}

// CoalescingHooks carries the metric callbacks injected by main.
// Any field may be nil.
type CoalescingHooks struct {
	OnEnqueued     func(roles int)
	OnTimerStarted func()
	OnSent         func(roles int)
	OnFailed       func(reason string)
}

func (h *CoalescingHooks) fill() {
	if h.OnEnqueued == nil {
		h.OnEnqueued = func(int) {}
	}
	if h.OnTimerStarted == nil {
		h.OnTimerStarted = func() {}
	}
	if h.OnSent == nil {
		h.OnSent = func(int) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(string) {}
	}
}

// RoleNotificationService coalesces role grants per member and sends one
// verification message once the member's roles have settled.
//
// The first eligible grant for a quiescent member starts a settling timer.
// Grants arriving while that timer is pending only grow the member's set;
// the timer drains whatever has accumulated when it fires.
type RoleNotificationService struct {
	pending      *queue.PendingRoles
	destinations domain.DestinationTable
	notifier     Notifier
	scheduler    worker.Scheduler
	settleDelay  time.Duration
	logger       *zap.Logger
	hooks        CoalescingHooks
}

func NewRoleNotificationService(
	pending *queue.PendingRoles,
	destinations domain.DestinationTable,
	notifier Notifier,
	scheduler worker.Scheduler,
	settleDelay time.Duration,
	logger *zap.Logger,
	hooks CoalescingHooks,
) *RoleNotificationService {
	hooks.fill()
	return &RoleNotificationService{
		pending:      pending,
		destinations: destinations,
		notifier:     notifier,
		scheduler:    scheduler,
		settleDelay:  settleDelay,
		logger:       logger,
		hooks:        hooks,
	}
}

// OnRoleGrantEvent handles a member update. Only roles gained in after
// that have a documentation destination are considered; removals and
// unmapped roles are ignored. It never blocks on the network.
func (s *RoleNotificationService) OnRoleGrantEvent(member domain.Member, before, after []domain.Role) {
	granted := s.destinations.Filter(domain.NewlyGranted(before, after))
	if len(granted) == 0 {
		return
	}

	added, spawn := s.pending.Enqueue(member, granted)
	if len(added) == 0 {
		return
	}
	s.hooks.OnEnqueued(len(added))

	s.logger.Debug("role grants pending",
		zap.String("member_id", member.ID),
		zap.Int("added", len(added)),
		zap.Bool("timer_started", spawn),
	)

	if !spawn {
		return
	}
	s.hooks.OnTimerStarted()
	id := member.ID
	s.scheduler.After(s.settleDelay, func(ctx context.Context) {
		s.flush(ctx, id)
	})
}

// Pending returns a copy of every member's unflushed role set.
func (s *RoleNotificationService) Pending() map[domain.MemberID][]domain.Role {
	return s.pending.Snapshot()
}

// flush drains the member's set and sends it. Failures are logged and
// dropped: the set is never put back.
func (s *RoleNotificationService) flush(ctx context.Context, id domain.MemberID) {
	member, roles, ok := s.pending.Drain(id)
	if !ok {
		return
	}

	err := s.notifier.Notify(ctx, member, roles)
	if err == nil {
		s.hooks.OnSent(len(roles))
		return
	}

	reason := failureReason(err)
	s.hooks.OnFailed(reason)

	fields := []zap.Field{
		zap.String("member_id", id),
		zap.Int("roles", len(roles)),
		zap.String("reason", reason),
		zap.Error(err),
	}
	switch reason {
	case "transient", "channel_not_found", "canceled":
		s.logger.Warn("verification notification dropped", fields...)
	default:
		s.logger.Error("verification notification dropped", fields...)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrChannelNotFound):
		return "channel_not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
