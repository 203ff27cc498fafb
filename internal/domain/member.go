package domain

// MemberID is the platform user id (a Discord snowflake).
type MemberID = string

// Role is a guild role as seen at the time an event was processed.
// Two roles are the same role when their IDs match.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Member is the snapshot needed to address a member in a message.
type Member struct {
	ID        MemberID `json:"id"`
	Mention   string   `json:"mention"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

// GuildMember is a cached member with the role ids it currently holds.
type GuildMember struct {
	ID      MemberID
	RoleIDs []string
}

// NewlyGranted returns the roles present in after but not in before,
// keeping the order of after and dropping repeated ids.
func NewlyGranted(before, after []Role) []Role {
	had := make(map[string]struct{}, len(before))
	for _, r := range before {
		had[r.ID] = struct{}{}
	}

	var granted []Role
	for _, r := range after {
		if _, ok := had[r.ID]; ok {
			continue
		}
		had[r.ID] = struct{}{}
		granted = append(granted, r)
	}
	return granted
}
