package domain

import (
	"fmt"
	"strings"
)

// DestinationTable maps a notification-eligible role id to the channel
// holding that role's documentation. It is never mutated after load.
type DestinationTable struct {
	byRole map[string]string
}

func NewDestinationTable(m map[string]string) DestinationTable {
	byRole := make(map[string]string, len(m))
	for role, channel := range m {
		byRole[role] = channel
	}
	return DestinationTable{byRole: byRole}
}

// ParseDestinationTable parses "role:channel,role:channel".
// Whitespace around ids is ignored; empty items are skipped.
func ParseDestinationTable(s string) (DestinationTable, error) {
	m := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		role, channel, ok := strings.Cut(item, ":")
		role, channel = strings.TrimSpace(role), strings.TrimSpace(channel)
		if !ok || role == "" || channel == "" {
			return DestinationTable{}, fmt.Errorf("%q: %w", item, ErrInvalidDestination)
		}
		m[role] = channel
	}
	return DestinationTable{byRole: m}, nil
}

func (t DestinationTable) Eligible(roleID string) bool {
	_, ok := t.byRole[roleID]
	return ok
}

func (t DestinationTable) Destination(roleID string) (string, bool) {
	ch, ok := t.byRole[roleID]
	return ch, ok
}

func (t DestinationTable) Len() int { return len(t.byRole) }

// Filter keeps the roles that have a destination, preserving order.
func (t DestinationTable) Filter(roles []Role) []Role {
	var out []Role
	for _, r := range roles {
		if t.Eligible(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
