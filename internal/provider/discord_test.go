package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

func restError(status, code int) error {
	e := &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
	if code != 0 {
		e.Message = &discordgo.APIErrorMessage{Code: code, Message: "test"}
	}
	return e
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unknown message", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), domain.ErrNotFound},
		{"plain 404", restError(http.StatusNotFound, 0), domain.ErrNotFound},
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), domain.ErrForbidden},
		{"plain 403", restError(http.StatusForbidden, 0), domain.ErrForbidden},
		{"429", restError(http.StatusTooManyRequests, 0), domain.ErrTransient},
		{"502", restError(http.StatusBadGateway, 0), domain.ErrTransient},
		{"rate limit error", &discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{}, URL: "/channels"}}, domain.ErrTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v in chain, got %v", tc.want, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatal("original error must stay in the chain")
			}
		})
	}
}

func TestClassify_Unclassified(t *testing.T) {
	got := classify("op", restError(http.StatusBadRequest, 0))
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrForbidden, domain.ErrTransient} {
		if errors.Is(got, sentinel) {
			t.Fatalf("400 must not be classified as %v", sentinel)
		}
	}
	if classify("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if !errors.Is(classify("op", context.Canceled), context.Canceled) {
		t.Fatal("context errors must pass through")
	}
}

func TestToMessageSend(t *testing.T) {
	msg := toMessageSend(domain.Notification{
		Content:      "<@42>",
		MentionUsers: []string{"42"},
		Title:        "Thank you for your purchase!",
		Description:  "body",
		Color:        0x059669,
		ThumbnailURL: "https://cdn.example/avatar.png",
		Fields:       []domain.EmbedField{{Name: "Plugin A", Value: "<#1>", Inline: true}},
		Footer:       "footer",
	})

	if msg.Content != "<@42>" || len(msg.Embeds) != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	e := msg.Embeds[0]
	if e.Thumbnail == nil || e.Thumbnail.URL != "https://cdn.example/avatar.png" {
		t.Fatal("expected thumbnail")
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "Plugin A" || !e.Fields[0].Inline {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
	if e.Footer == nil || e.Footer.Text != "footer" {
		t.Fatal("expected footer")
	}
	if msg.AllowedMentions == nil || len(msg.AllowedMentions.Users) != 1 {
		t.Fatal("expected mention restricted to the member")
	}
}

func TestToMessageSend_OmitsEmptyParts(t *testing.T) {
	e := toMessageSend(domain.Notification{Title: "t"}).Embeds[0]
	if e.Thumbnail != nil || e.Footer != nil || len(e.Fields) != 0 {
		t.Fatalf("expected bare embed, got %+v", e)
	}
}

func TestChannelLookupError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMissing bool
		wantClass   error
	}{
		{"unknown channel", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), true, domain.ErrNotFound},
		{"rate limited", restError(http.StatusTooManyRequests, 0), false, domain.ErrTransient},
		{"server error", restError(http.StatusBadGateway, 0), false, domain.ErrTransient},
		{"no access", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), false, domain.ErrForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := channelLookupError("123", tc.err)
			if errors.Is(got, domain.ErrChannelNotFound) != tc.wantMissing {
				t.Fatalf("ErrChannelNotFound in chain = %v, want %v (%v)", !tc.wantMissing, tc.wantMissing, got)
			}
			if !errors.Is(got, tc.wantClass) {
				t.Fatalf("expected %v in chain, got %v", tc.wantClass, got)
			}
		})
	}
}

func TestDiscordPlatform_MembersFromState(t *testing.T) {
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	p := NewDiscordPlatform(s, nil)

	if _, err := p.Members(context.Background(), "guild"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown guild, got %v", err)
	}

	if err := s.State.GuildAdd(&discordgo.Guild{ID: "guild"}); err != nil {
		t.Fatalf("add guild: %v", err)
	}
	chunk := &discordgo.GuildMembersChunk{GuildID: "guild", ChunkCount: 1, Members: []*discordgo.Member{
		{User: &discordgo.User{ID: "1"}, Roles: []string{"a"}},
		{User: &discordgo.User{ID: "2"}},
	}}
	if err := s.State.OnInterface(s, chunk); err != nil {
		t.Fatalf("state chunk: %v", err)
	}

	members, err := p.Members(context.Background(), "guild")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 || members[0].ID != "1" || members[0].RoleIDs[0] != "a" || members[1].ID != "2" {
		t.Fatalf("unexpected members: %+v", members)
	}
}
