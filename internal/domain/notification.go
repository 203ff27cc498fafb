package domain

// EmbedField is one labelled reference inside a notification.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Notification is a platform-neutral rich message. The provider turns it
// into whatever the chat platform sends on the wire.
type Notification struct {
	Content      string
	MentionUsers []MemberID

	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	Fields       []EmbedField
	Footer       string
}

// MessageRef identifies a message that was sent and may later be deleted.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}
