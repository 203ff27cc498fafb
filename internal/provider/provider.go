package provider

import (
	"context"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// MessageSender posts messages to guild channels.
type MessageSender interface {
	// Channel reports whether the channel exists and is visible to the bot.
	Channel(ctx context.Context, channelID string) error
	SendNotification(ctx context.Context, channelID string, n domain.Notification) (domain.MessageRef, error)
	SendText(ctx context.Context, channelID, text string) error
}

// MessageDeleter removes a previously sent message.
// A message that no longer exists yields an error matching domain.ErrNotFound.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, ref domain.MessageRef) error
}

// RoleManager reads guild roles and grants them to members.
type RoleManager interface {
	Role(ctx context.Context, guildID, roleID string) (domain.Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
}

// MemberLister enumerates guild members known to the gateway cache.
type MemberLister interface {
	Members(ctx context.Context, guildID string) ([]domain.GuildMember, error)
}

// Platform is everything the bot needs from the chat platform's REST API.
// Mocking these interfaces in tests gives full control over platform
// behaviour without a gateway connection.
type Platform interface {
	MessageSender
	MessageDeleter
	RoleManager
	MemberLister
}
