package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/provider"
)

// Join outcomes reported to the onJoin hook.
const (
	JoinAssigned     = "assigned"
	JoinExcluded     = "excluded"
	JoinAlreadyHas   = "already_has"
	JoinRoleNotFound = "role_not_found"
	JoinFailed       = "failed"
)

// MembershipPlatform is what the join role needs from the platform.
type MembershipPlatform interface {
	provider.RoleManager
	provider.MemberLister
}

// MembershipService grants the join role to members entering the guild
// and periodically re-applies it to every cached member.
type MembershipService struct {
	platform   MembershipPlatform
	guildID    string
	joinRoleID string
	excluded   map[string]struct{}
	logger     *zap.Logger
	onJoin     func(result string)
}

// NewMembershipService constructs the service. onJoin is optional (nil = no-op).
func NewMembershipService(
	platform MembershipPlatform,
	guildID, joinRoleID string,
	excluded map[string]struct{},
	logger *zap.Logger,
	onJoin func(string),
) *MembershipService {
	if onJoin == nil {
		onJoin = func(string) {}
	}
	return &MembershipService{
		platform:   platform,
		guildID:    guildID,
		joinRoleID: joinRoleID,
		excluded:   excluded,
		logger:     logger,
		onJoin:     onJoin,
	}
}

// OnMemberJoin gives the join role to userID unless the member is excluded
// or already holds it. currentRoles are the role ids the member joined with.
// The outcome is returned as well as reported to the hook.
func (s *MembershipService) OnMemberJoin(ctx context.Context, userID string, currentRoles []string) string {
	result := s.join(ctx, userID, currentRoles)
	s.onJoin(result)
	return result
}

func (s *MembershipService) join(ctx context.Context, userID string, currentRoles []string) string {
	if _, ok := s.excluded[userID]; ok {
		return JoinExcluded
	}
	role, result := s.joinRole(ctx)
	if result != "" {
		return result
	}
	return s.assign(ctx, role, domain.GuildMember{ID: userID, RoleIDs: currentRoles})
}

// Reconcile gives the join role to every cached member missing it and
// returns how many members ended in each outcome. Only grants and
// failures are reported to the hook.
func (s *MembershipService) Reconcile(ctx context.Context) (map[string]int, error) {
	members, err := s.platform.Members(ctx, s.guildID)
	if err != nil {
		return nil, err
	}
	role, result := s.joinRole(ctx)
	if result != "" {
		s.onJoin(result)
		return map[string]int{result: len(members)}, nil
	}

	counts := make(map[string]int)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		var r string
		if _, ok := s.excluded[m.ID]; ok {
			r = JoinExcluded
		} else {
			r = s.assign(ctx, role, m)
		}
		counts[r]++
		if r == JoinAssigned || r == JoinFailed {
			s.onJoin(r)
		}
	}
	return counts, nil
}

// Run reconciles every interval until ctx is cancelled. A non-positive
// interval disables the periodic pass.
func (s *MembershipService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("join role reconciliation disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("join role reconciliation started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("join role reconciliation stopping")
			return
		case <-ticker.C:
			s.reconcile(ctx)
		}
	}
}

// ReconcileNow runs one pass and logs its outcome. The bot calls it once
// the member list has been loaded.
func (s *MembershipService) ReconcileNow(ctx context.Context) {
	s.reconcile(ctx)
}

func (s *MembershipService) reconcile(ctx context.Context) {
	counts, err := s.Reconcile(ctx)
	if err != nil {
		s.logger.Error("join role reconciliation failed", zap.Error(err))
		return
	}
	s.logger.Info("join role reconciliation done",
		zap.Int("assigned", counts[JoinAssigned]),
		zap.Int("already_has", counts[JoinAlreadyHas]),
		zap.Int("excluded", counts[JoinExcluded]),
		zap.Int("failed", counts[JoinFailed]),
	)
}

// joinRole returns the role or, when it cannot be used, the outcome to report.
func (s *MembershipService) joinRole(ctx context.Context) (domain.Role, string) {
	log := s.logger.With(zap.String("role_id", s.joinRoleID))

	role, err := s.platform.Role(ctx, s.guildID, s.joinRoleID)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			log.Error("join role not found")
			return domain.Role{}, JoinRoleNotFound
		}
		log.Error("failed to look up join role", zap.Error(err))
		return domain.Role{}, JoinFailed
	}
	return role, ""
}

func (s *MembershipService) assign(ctx context.Context, role domain.Role, m domain.GuildMember) string {
	for _, id := range m.RoleIDs {
		if id == role.ID {
			return JoinAlreadyHas
		}
	}

	log := s.logger.With(zap.String("member_id", m.ID), zap.String("role_id", role.ID))
	if err := s.platform.AddRole(ctx, s.guildID, m.ID, role.ID); err != nil {
		log.Error("failed to assign join role", zap.Error(err))
		return JoinFailed
	}
	log.Info("join role assigned", zap.String("role", role.Name))
	return JoinAssigned
}
