package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// Metrics groups all Prometheus instruments used across the bot.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RoleGrantsEnqueued    prometheus.Counter
	SettlingTimersStarted prometheus.Counter
	NotificationsSent     prometheus.Counter
	NotificationRoles     prometheus.Histogram
	NotificationsFailed   *prometheus.CounterVec
	MessageDeletions      *prometheus.CounterVec
	JoinRolesAssigned     *prometheus.CounterVec
}

// New registers all instruments with reg. pendingMembers backs the
// pending_members gauge and is read at scrape time.
func New(reg prometheus.Registerer, pendingMembers func() int) *Metrics {
	m := &Metrics{
		RoleGrantsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "role_grants_enqueued_total",
			Help: "Notification-eligible role grants added to a pending set.",
		}),
		SettlingTimersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settling_timers_started_total",
			Help: "Settling timers started (one per empty to non-empty transition).",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_notifications_sent_total",
			Help: "Consolidated verification notifications delivered.",
		}),
		NotificationRoles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verification_notification_roles",
			Help:    "Number of roles coalesced into one notification.",
			Buckets: []float64{1, 2, 3, 4, 6, 8},
		}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_notifications_failed_total",
			Help: "Verification notifications dropped, by failure reason.",
		}, []string{"reason"}),
		MessageDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "message_deletions_total",
			Help: "Self-deletion attempts, by ticket outcome.",
		}, []string{"result"}),
		JoinRolesAssigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "join_roles_total",
			Help: "Join role handling for new members, by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RoleGrantsEnqueued,
		m.SettlingTimersStarted,
		m.NotificationsSent,
		m.NotificationRoles,
		m.NotificationsFailed,
		m.MessageDeletions,
		m.JoinRolesAssigned,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pending_members",
			Help: "Members with a pending (unflushed) role set.",
		}, func() float64 { return float64(pendingMembers()) }),
	)

	return m
}

// CoalescingHooks returns the callbacks expected by service.CoalescingHooks.
// Keeping the prometheus calls here leaves the service import-free.
func (m *Metrics) CoalescingHooks() (
	onEnqueued func(roles int),
	onTimerStarted func(),
	onSent func(roles int),
	onFailed func(reason string),
) {
	onEnqueued = func(roles int) { m.RoleGrantsEnqueued.Add(float64(roles)) }
	onTimerStarted = func() { m.SettlingTimersStarted.Inc() }
	onSent = func(roles int) {
		m.NotificationsSent.Inc()
		m.NotificationRoles.Observe(float64(roles))
	}
	onFailed = func(reason string) { m.NotificationsFailed.WithLabelValues(reason).Inc() }
	return
}

// DeletionHook returns the callback expected by worker.DeletionWorker.
func (m *Metrics) DeletionHook() func(domain.TicketStatus) {
	return func(s domain.TicketStatus) {
		m.MessageDeletions.WithLabelValues(string(s)).Inc()
	}
}

// JoinHook returns the callback expected by service.MembershipService.
func (m *Metrics) JoinHook() func(result string) {
	return func(result string) {
		m.JoinRolesAssigned.WithLabelValues(result).Inc()
	}
}
