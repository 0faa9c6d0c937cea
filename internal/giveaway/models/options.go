package models

import "time"

// StartOptions is the caller input for starting a giveaway. Zero-valued fields
// fall back to the manager defaults.
type StartOptions struct {
	Duration    time.Duration `json:"duration"`
	Prize       string        `json:"prize"`
	WinnerCount int           `json:"winner_count"`
	HostedBy    string        `json:"hosted_by,omitempty"`
	Messages    *Messages     `json:"messages,omitempty"`

	Reaction          string   `json:"reaction,omitempty"`
	BotsCanWin        *bool    `json:"bots_can_win,omitempty"`
	ExemptPermissions []string `json:"exempt_permissions,omitempty"`

	RoleRequirement    []string      `json:"role_requirement,omitempty"`
	JoinedRequirement  time.Duration `json:"joined_requirement,omitempty"`
	AgeRequirement     time.Duration `json:"age_requirement,omitempty"`
	MessageRequirement int           `json:"message_requirement,omitempty"`
	ServerRequirement  []string      `json:"server_requirement,omitempty"`
	BypassRoles        []string      `json:"bypass_roles,omitempty"`

	IsDrop bool `json:"is_drop,omitempty"`

	EmbedColor    string `json:"embed_color,omitempty"`
	EmbedColorEnd string `json:"embed_color_end,omitempty"`
	WinnerRole    string `json:"winner_role,omitempty"`

	ExemptMembers ExemptFunc `json:"-"`
}

// EditOptions is a partial mutation of a running giveaway. Only non-nil fields
// are applied.
type EditOptions struct {
	NewWinnerCount *int    `json:"new_winner_count,omitempty"`
	NewPrize       *string `json:"new_prize,omitempty"`
	// AddTime shifts EndAt by a delta, which may be negative.
	AddTime *time.Duration `json:"add_time,omitempty"`
	// SetEndTimestamp overrides EndAt with an absolute instant.
	SetEndTimestamp *time.Time `json:"set_end_timestamp,omitempty"`
	NewMessages     *Messages  `json:"new_messages,omitempty"`
}

// IsZero reports whether the edit carries no mutation at all.
func (o *EditOptions) IsZero() bool {
	return o == nil ||
		(o.NewWinnerCount == nil && o.NewPrize == nil && o.AddTime == nil &&
			o.SetEndTimestamp == nil && o.NewMessages == nil)
}

// RerollOptions tunes a reroll. A zero WinnerCount reuses the stored one.
type RerollOptions struct {
	WinnerCount int       `json:"winner_count,omitempty"`
	Messages    *Messages `json:"messages,omitempty"`
}

// Defaults are the manager-wide fallbacks merged under every StartOptions.
type Defaults struct {
	Reaction      string
	BotsCanWin    bool
	EmbedColor    string
	EmbedColorEnd string
	ExemptMembers ExemptFunc
}
