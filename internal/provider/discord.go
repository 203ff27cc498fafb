package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/ratelimiter"
)

// DiscordPlatform implements Platform on top of a discordgo session.
// State (the gateway cache) is consulted before REST wherever possible.
type DiscordPlatform struct {
	session *discordgo.Session
	limiter *ratelimiter.RouteLimiters
}

func NewDiscordPlatform(session *discordgo.Session, limiter *ratelimiter.RouteLimiters) *DiscordPlatform {
	return &DiscordPlatform{session: session, limiter: limiter}
}

func (p *DiscordPlatform) Channel(ctx context.Context, channelID string) error {
	if p.session.State != nil {
		if _, err := p.session.State.Channel(channelID); err == nil {
			return nil
		}
	}
	if _, err := p.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
		return channelLookupError(channelID, err)
	}
	return nil
}

// channelLookupError marks the failure as a lookup miss only when the
// channel is really gone; rate limits and outages keep their own class.
func channelLookupError(channelID string, err error) error {
	err = classify("get channel", err)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("channel %s: %w: %w", channelID, domain.ErrChannelNotFound, err)
	}
	return fmt.Errorf("channel %s: %w", channelID, err)
}

func (p *DiscordPlatform) SendNotification(ctx context.Context, channelID string, n domain.Notification) (domain.MessageRef, error) {
	if err := p.limiter.Wait(ctx, ratelimiter.RouteMessages); err != nil {
		return domain.MessageRef{}, err
	}

	msg, err := p.session.ChannelMessageSendComplex(channelID, toMessageSend(n), discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, classify("send message", err)
	}
	return domain.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (p *DiscordPlatform) SendText(ctx context.Context, channelID, text string) error {
	if err := p.limiter.Wait(ctx, ratelimiter.RouteMessages); err != nil {
		return err
	}
	_, err := p.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return classify("send message", err)
}

func (p *DiscordPlatform) DeleteMessage(ctx context.Context, ref domain.MessageRef) error {
	if err := p.limiter.Wait(ctx, ratelimiter.RouteMessages); err != nil {
		return err
	}
	err := p.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	return classify("delete message", err)
}

func (p *DiscordPlatform) Role(ctx context.Context, guildID, roleID string) (domain.Role, error) {
	if p.session.State != nil {
		if r, err := p.session.State.Role(guildID, roleID); err == nil {
			return domain.Role{ID: r.ID, Name: r.Name}, nil
		}
	}

	roles, err := p.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Role{}, classify("list roles", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return domain.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return domain.Role{}, fmt.Errorf("role %s: %w", roleID, domain.ErrRoleNotFound)
}

func (p *DiscordPlatform) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := p.limiter.Wait(ctx, ratelimiter.RouteRoles); err != nil {
		return err
	}
	err := p.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify("add role", err)
}

// Members copies the cached member list. The cache is filled by the
// member chunks requested once the gateway is ready; nothing is paginated
// over REST.
func (p *DiscordPlatform) Members(_ context.Context, guildID string) ([]domain.GuildMember, error) {
	if p.session.State == nil {
		return nil, fmt.Errorf("guild %s members: state disabled: %w", guildID, domain.ErrNotFound)
	}
	g, err := p.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s members: %w: %w", guildID, domain.ErrNotFound, err)
	}

	p.session.State.RLock()
	defer p.session.State.RUnlock()
	out := make([]domain.GuildMember, 0, len(g.Members))
	for _, m := range g.Members {
		if m == nil || m.User == nil {
			continue
		}
		out = append(out, domain.GuildMember{
			ID:      m.User.ID,
			RoleIDs: append([]string(nil), m.Roles...),
		})
	}
	return out, nil
}

// toMessageSend renders a domain notification as a single-embed message.
// Only the users listed in MentionUsers are pinged.
func toMessageSend(n domain.Notification) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
	}
	if n.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: n.ThumbnailURL}
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if n.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: n.Footer}
	}

	return &discordgo.MessageSend{
		Content: n.Content,
		Embeds:  []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: n.MentionUsers,
		},
	}
}

// compile-time check that DiscordPlatform implements Platform
var _ Platform = (*DiscordPlatform)(nil)
