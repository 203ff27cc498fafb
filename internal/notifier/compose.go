package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

const (
	embedTitle = "Thank you for your purchase!"
	embedColor = 0x059669
)

// Compose builds the consolidated verification message for every role
// drained in one flush. deleteAt is printed in the footer.
func Compose(member domain.Member, roles []domain.Role, destinations domain.DestinationTable, deleteAt time.Time, retention time.Duration) domain.Notification {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}

	plugin, topic := "plugin", "the post below"
	if len(roles) > 1 {
		plugin, topic = "plugins", "the posts below"
	}

	var fields []domain.EmbedField
	for _, r := range roles {
		ch, ok := destinations.Destination(r.ID)
		if !ok {
			continue
		}
		fields = append(fields, domain.EmbedField{
			Name:   r.Name,
			Value:  "<#" + ch + ">",
			Inline: true,
		})
	}

	return domain.Notification{
		Content:      member.Mention,
		MentionUsers: []domain.MemberID{member.ID},
		Title:        embedTitle,
		Description: fmt.Sprintf(
			"You have been successfully verified for %s. For complete documentation of the %s, please access %s.",
			joinRoleNames(names), plugin, topic,
		),
		Color:        embedColor,
		ThumbnailURL: member.AvatarURL,
		Fields:       fields,
		Footer: fmt.Sprintf("This message will be deleted in %s (%s UTC)",
			humanizeRetention(retention), deleteAt.UTC().Format("2006-01-02 15:04:05")),
	}
}

// joinRoleNames renders ["A","B","C"] as "**A**, **B** and **C**".
func joinRoleNames(names []string) string {
	bold := make([]string, len(names))
	for i, n := range names {
		bold[i] = "**" + n + "**"
	}
	switch len(bold) {
	case 0:
		return ""
	case 1:
		return bold[0]
	}
	return strings.Join(bold[:len(bold)-1], ", ") + " and " + bold[len(bold)-1]
}

func humanizeRetention(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d == time.Minute:
		return "1 minute"
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
