package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/role-manager-bot/internal/provider"
)

const (
	StartupMessage  = "The bot has started!"
	ShutdownMessage = "The bot is shutting down."
)

// Announcer posts lifecycle messages to the status channel.
// Failures are logged and never stop startup or shutdown.
type Announcer struct {
	sender    provider.MessageSender
	channelID string
	logger    *zap.Logger
}

func NewAnnouncer(sender provider.MessageSender, channelID string, logger *zap.Logger) *Announcer {
	return &Announcer{sender: sender, channelID: channelID, logger: logger}
}

// Announce reports whether text was delivered.
func (a *Announcer) Announce(ctx context.Context, text string) bool {
	log := a.logger.With(zap.String("channel_id", a.channelID))

	if err := a.sender.Channel(ctx, a.channelID); err != nil {
		log.Warn("status channel not found", zap.Error(err))
		return false
	}
	if err := a.sender.SendText(ctx, a.channelID, text); err != nil {
		log.Error("failed to send status message", zap.Error(err))
		return false
	}
	log.Info("status message sent", zap.String("text", text))
	return true
}
