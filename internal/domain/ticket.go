package domain

import "time"

// TicketStatus tracks the lifecycle of a self-deleting message.
type TicketStatus string

const (
	TicketOutstanding TicketStatus = "outstanding"
	TicketDeleting    TicketStatus = "deleting"
	TicketDeleted     TicketStatus = "deleted"
	TicketGone        TicketStatus = "gone"
	TicketFailed      TicketStatus = "failed"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketOutstanding, TicketDeleting, TicketDeleted, TicketGone, TicketFailed:
		return true
	}
	return false
}

// Terminal reports whether the single deletion attempt has completed.
func (s TicketStatus) Terminal() bool {
	return s == TicketDeleted || s == TicketGone || s == TicketFailed
}

// Ticket is a sent notification plus the instant it must be deleted.
type Ticket struct {
	ID           string       `json:"id"`
	ChannelID    string       `json:"channel_id"`
	MessageID    string       `json:"message_id"`
	MemberID     MemberID     `json:"member_id"`
	Status       TicketStatus `json:"status"`
	DeleteAt     time.Time    `json:"delete_at"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (t *Ticket) Message() MessageRef {
	return MessageRef{ChannelID: t.ChannelID, MessageID: t.MessageID}
}

// TicketFilter holds query parameters for ticket listing.
type TicketFilter struct {
	Status *TicketStatus
	Limit  int
}
