package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// SentNotification records one SendNotification call on FakePlatform.
type SentNotification struct {
	ChannelID    string
	Notification domain.Notification
	Ref          domain.MessageRef
}

// RoleGrant records one AddRole call on FakePlatform.
type RoleGrant struct {
	GuildID, UserID, RoleID string
}

// FakePlatform is a hand-written, in-memory Platform used in unit tests.
type FakePlatform struct {
	mu sync.Mutex

	channels map[string]bool
	roles    map[string]domain.Role
	members  []domain.GuildMember
	nextID   int

	sent    []SentNotification
	texts   []string
	deleted []domain.MessageRef
	grants  []RoleGrant

	// Optional error overrides, set in tests to simulate failure paths.
	ChannelErr error
	MembersErr error
	SendErr    error
	DeleteErr  error
	AddRoleErr error
}

func NewFakePlatform(channels ...string) *FakePlatform {
	f := &FakePlatform{
		channels: make(map[string]bool),
		roles:    make(map[string]domain.Role),
	}
	for _, ch := range channels {
		f.channels[ch] = true
	}
	return f
}

func (f *FakePlatform) AddGuildRole(r domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[r.ID] = r
}

func (f *FakePlatform) AddMember(m domain.GuildMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = append(f.members, m)
}

func (f *FakePlatform) Members(_ context.Context, _ string) ([]domain.GuildMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MembersErr != nil {
		return nil, f.MembersErr
	}
	return append([]domain.GuildMember(nil), f.members...), nil
}

func (f *FakePlatform) Channel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ChannelErr != nil {
		return f.ChannelErr
	}
	if !f.channels[channelID] {
		return fmt.Errorf("channel %s: %w", channelID, domain.ErrChannelNotFound)
	}
	return nil
}

func (f *FakePlatform) SendNotification(_ context.Context, channelID string, n domain.Notification) (domain.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return domain.MessageRef{}, f.SendErr
	}
	f.nextID++
	ref := domain.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("msg-%d", f.nextID)}
	f.sent = append(f.sent, SentNotification{ChannelID: channelID, Notification: n, Ref: ref})
	return ref, nil
}

func (f *FakePlatform) SendText(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *FakePlatform) DeleteMessage(_ context.Context, ref domain.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *FakePlatform) Role(_ context.Context, _ string, roleID string) (domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return domain.Role{}, fmt.Errorf("role %s: %w", roleID, domain.ErrRoleNotFound)
	}
	return r, nil
}

func (f *FakePlatform) AddRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddRoleErr != nil {
		return f.AddRoleErr
	}
	f.grants = append(f.grants, RoleGrant{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func (f *FakePlatform) Sent() []SentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentNotification(nil), f.sent...)
}

func (f *FakePlatform) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *FakePlatform) Deleted() []domain.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.MessageRef(nil), f.deleted...)
}

func (f *FakePlatform) Grants() []RoleGrant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RoleGrant(nil), f.grants...)
}

var _ Platform = (*FakePlatform)(nil)
