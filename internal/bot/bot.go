package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/provider"
	"github.com/notifyhub/role-manager-bot/internal/service"
)

// RoleGrantHandler receives every member role change in the guild.
type RoleGrantHandler interface {
	OnRoleGrantEvent(member domain.Member, before, after []domain.Role)
}

// JoinHandler receives every member that joins the guild.
type JoinHandler interface {
	OnMemberJoin(ctx context.Context, userID string, currentRoles []string) string
}

// Bot is the gateway glue: it turns discordgo events into service calls.
// It holds no state of its own beyond the session.
type Bot struct {
	session   *discordgo.Session
	guildID   string
	roles     provider.RoleManager
	grants    RoleGrantHandler
	joins     JoinHandler
	announcer *service.Announcer
	logger    *zap.Logger

	// ctx is the base context for work started from event handlers.
	ctx context.Context

	requestMembers  func(guildID string) error
	onMembersLoaded func(ctx context.Context)
}

type Option func(*Bot)

// WithMembersLoaded registers fn to run after the last member chunk of the
// guild has been cached.
func WithMembersLoaded(fn func(ctx context.Context)) Option {
	return func(b *Bot) { b.onMembersLoaded = fn }
}

// NewSession builds a discordgo session for the bot token. Library-level
// retries are disabled: every failure surfaces to the caller once.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	s.ShouldRetryOnRateLimit = false
	s.MaxRestRetries = 0
	s.StateEnabled = true
	// Role diffs come from cached members: BeforeUpdate is only set for
	// members already in State.
	s.State.TrackMembers = true
	return s, nil
}

func New(
	session *discordgo.Session,
	guildID string,
	roles provider.RoleManager,
	grants RoleGrantHandler,
	joins JoinHandler,
	announcer *service.Announcer,
	logger *zap.Logger,
	opts ...Option,
) *Bot {
	b := &Bot{
		session:         session,
		guildID:         guildID,
		roles:           roles,
		grants:          grants,
		joins:           joins,
		announcer:       announcer,
		logger:          logger,
		ctx:             context.Background(),
		onMembersLoaded: func(context.Context) {},
	}
	b.requestMembers = func(guildID string) error {
		return b.session.RequestGuildMembers(guildID, "", 0, "", false)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open registers event handlers and connects to the gateway. ctx is used
// for all work triggered by events until Close.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildMembersChunk)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberUpdate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Close posts the shutdown announcement and disconnects.
func (b *Bot) Close(ctx context.Context) error {
	b.announcer.Announce(ctx, service.ShutdownMessage)
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	b.announcer.Announce(b.ctx, service.StartupMessage)
}

// onGuildCreate asks for the full member list. Large guilds arrive
// without members, and role diffs need every member cached.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.ID != b.guildID || g.Unavailable {
		return
	}
	if err := b.requestMembers(g.ID); err != nil {
		b.logger.Error("failed to request guild members", zap.String("guild_id", g.ID), zap.Error(err))
		return
	}
	b.logger.Info("requested guild members", zap.String("guild_id", g.ID), zap.Int("member_count", g.MemberCount))
}

func (b *Bot) onGuildMembersChunk(_ *discordgo.Session, c *discordgo.GuildMembersChunk) {
	if c.GuildID != b.guildID || c.ChunkIndex != c.ChunkCount-1 {
		return
	}
	b.logger.Info("guild members cached", zap.String("guild_id", c.GuildID), zap.Int("chunks", c.ChunkCount))
	b.onMembersLoaded(b.ctx)
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.GuildID != b.guildID {
		return
	}
	result := b.joins.OnMemberJoin(b.ctx, m.User.ID, m.Roles)
	b.logger.Debug("member joined", zap.String("member_id", m.User.ID), zap.String("join_role", result))
}

func (b *Bot) onGuildMemberUpdate(_ *discordgo.Session, u *discordgo.GuildMemberUpdate) {
	if u.Member == nil || u.User == nil || u.GuildID != b.guildID {
		return
	}
	// Only possible while the member list is still loading.
	if u.BeforeUpdate == nil {
		b.logger.Warn("member update without cached state", zap.String("member_id", u.User.ID))
		return
	}

	before := roleRefs(u.BeforeUpdate.Roles)
	after := roleRefs(u.Roles)
	for i, r := range after {
		if containsRole(before, r.ID) {
			continue
		}
		resolved, err := b.roles.Role(b.ctx, b.guildID, r.ID)
		if err != nil {
			b.logger.Warn("could not resolve granted role",
				zap.String("member_id", u.User.ID),
				zap.String("role_id", r.ID),
				zap.Error(err),
			)
			continue
		}
		after[i] = resolved
	}

	b.grants.OnRoleGrantEvent(memberSnapshot(u.Member), before, withNames(before, after))
}

// memberSnapshot captures what a message needs to address m.
func memberSnapshot(m *discordgo.Member) domain.Member {
	return domain.Member{
		ID:        m.User.ID,
		Mention:   m.User.Mention(),
		AvatarURL: m.AvatarURL(""),
	}
}

func roleRefs(ids []string) []domain.Role {
	out := make([]domain.Role, len(ids))
	for i, id := range ids {
		out[i] = domain.Role{ID: id}
	}
	return out
}

func containsRole(roles []domain.Role, id string) bool {
	for _, r := range roles {
		if r.ID == id {
			return true
		}
	}
	return false
}

// withNames drops newly granted roles whose name could not be resolved.
func withNames(before, after []domain.Role) []domain.Role {
	out := after[:0:0]
	for _, r := range after {
		if r.Name == "" && !containsRole(before, r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}
