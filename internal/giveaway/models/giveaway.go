package models

import (
	"context"
	"errors"
	"time"

	"giveaway-engine/internal/platform"
)

var (
	ErrGiveawayEnded    = errors.New("giveaway has ended")
	ErrGiveawayNotEnded = errors.New("giveaway has not ended")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidWinners   = errors.New("winner count must be greater than 0")
	ErrEmptyPrize       = errors.New("prize must not be empty")
)

// ExemptFunc decides whether a resolved member is excluded from winning.
// An error is treated as "not exempt": the engine logs it and keeps the member.
type ExemptFunc func(ctx context.Context, member *platform.Member) (bool, error)

// PauseOptions is the persisted pause state of a giveaway.
type PauseOptions struct {
	IsPaused bool `json:"is_paused"`
	// UnpauseAfter, when set, is the instant at which the giveaway resumes on
	// its own.
	UnpauseAfter time.Time `json:"unpause_after,omitempty"`
	// RemainingAtPause is the countdown left when the giveaway was paused. It
	// restores EndAt on unpause.
	RemainingAtPause time.Duration `json:"remaining_at_pause,omitempty"`
}

// Giveaway is the unit of persistence and of in-memory truth for one giveaway.
type Giveaway struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id,omitempty"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	Ended       bool     `json:"ended"`
	WinnerCount int      `json:"winner_count"`
	WinnerIDs   []string `json:"winner_ids,omitempty"`

	Prize    string    `json:"prize"`
	HostedBy string    `json:"hosted_by,omitempty"`
	Messages *Messages `json:"messages"`

	Reaction          string   `json:"reaction"`
	BotsCanWin        bool     `json:"bots_can_win"`
	ExemptPermissions []string `json:"exempt_permissions,omitempty"`

	RoleRequirement    []string      `json:"role_requirement,omitempty"`
	JoinedRequirement  time.Duration `json:"joined_requirement,omitempty"`
	AgeRequirement     time.Duration `json:"age_requirement,omitempty"`
	MessageRequirement int           `json:"message_requirement,omitempty"`
	ServerRequirement  []string      `json:"server_requirement,omitempty"`
	// ServersList is the resolved, human-readable server requirement text. It
	// is the only field that may still change after the giveaway ends.
	ServersList string   `json:"servers_list,omitempty"`
	BypassRoles []string `json:"bypass_roles,omitempty"`

	IsDrop bool `json:"is_drop,omitempty"`

	EmbedColor    string `json:"embed_color,omitempty"`
	EmbedColorEnd string `json:"embed_color_end,omitempty"`
	// WinnerRole is carried in configuration and storage but the engine never
	// grants it; consumers may act on it through the ended signal.
	WinnerRole string `json:"winner_role,omitempty"`

	Pause PauseOptions `json:"pause,omitempty"`

	// ExemptMembers is a caller-supplied capability, never persisted.
	ExemptMembers ExemptFunc `json:"-"`
}

// RemainingTime returns the countdown left at the given instant. A paused
// giveaway reports its frozen countdown.
func (g *Giveaway) RemainingTime(now time.Time) time.Duration {
	if g.Pause.IsPaused {
		return g.Pause.RemainingAtPause
	}
	return g.EndAt.Sub(now)
}

// HasExpired reports whether the countdown has elapsed at the given instant.
func (g *Giveaway) HasExpired(now time.Time) bool {
	return !g.Pause.IsPaused && g.RemainingTime(now) <= 0
}

// Validate checks the record invariants.
func (g *Giveaway) Validate() error {
	if g.Prize == "" {
		return ErrEmptyPrize
	}
	if g.WinnerCount < 1 {
		return ErrInvalidWinners
	}
	if g.EndAt.Before(g.StartAt) {
		return ErrInvalidDuration
	}
	return nil
}

// HasServerRequirement reports whether the giveaway requires membership of
// other servers.
func (g *Giveaway) HasServerRequirement() bool {
	return len(g.ServerRequirement) > 0
}
