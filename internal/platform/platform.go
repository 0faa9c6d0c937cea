// Package platform defines the boundary to the chat platform. The giveaway
// engine only ever talks to these interfaces; transport, authentication and
// rate limiting live behind them.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrInviteNotFound  = errors.New("invite not found")
)

// User is a platform account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// Member is a user resolved inside a guild.
type Member struct {
	User        User      `json:"user"`
	GuildID     string    `json:"guild_id"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	JoinedAt    time.Time `json:"joined_at"`
}

// HasRole reports whether the member holds the given role.
func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the member holds any of the given permissions.
func (m *Member) HasAnyPermission(perms []string) bool {
	for _, p := range perms {
		for _, mp := range m.Permissions {
			if p == mp {
				return true
			}
		}
	}
	return false
}

// Message is a handle to a posted message.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
}

// Embed is the renderer-produced rich content attached to a message.
type Embed struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// Messenger sends, edits, deletes and fetches channel messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content string, embed *Embed) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string, embed *Embed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)

	// MessageReactors lists the users who attached the given emoji to a message.
	MessageReactors(ctx context.Context, channelID, messageID, emoji string) ([]User, error)
}

// MemberResolver resolves guild members.
type MemberResolver interface {
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
}

// InviteResolver resolves an invite code to the name of the guild it points at.
type InviteResolver interface {
	ResolveInvite(ctx context.Context, code string) (string, error)
}

// Client is the full set of platform capabilities the engine consumes.
type Client interface {
	Messenger
	MemberResolver
	InviteResolver

	// Self returns the account this process acts as.
	Self(ctx context.Context) (User, error)
}
