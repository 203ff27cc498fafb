package domain

import "errors"

// Sentinel errors used throughout the application.
// Platform failures are classified into the first three so callers can
// branch with errors.Is without knowing about the Discord client.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden: missing permission")
	ErrTransient = errors.New("transient delivery error")

	ErrChannelNotFound    = errors.New("channel not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrInvalidDestination = errors.New("invalid role destination: expected role_id:channel_id")
	ErrTicketNotClaimable = errors.New("ticket is no longer outstanding")
	ErrInvalidStatus      = errors.New("invalid status: must be outstanding, deleting, deleted, gone, or failed")
)
