package models

// Messages is the template bundle used to render a giveaway. The engine treats
// the strings as opaque apart from placeholder substitution; callers can fully
// localize them. Supported placeholders: {prize}, {winnerCount}, {winners},
// {timeRemaining}, {winningChance}, {entries}, {hostedBy}, {requirements},
// {count}.
type Messages struct {
	Giveaway            string `json:"giveaway"`
	GiveawayEnded       string `json:"giveaway_ended"`
	Title               string `json:"title"`
	InviteToParticipate string `json:"invite_to_participate"`
	TimeRemaining       string `json:"time_remaining"`
	WinMessage          string `json:"win_message"`
	NoWinner            string `json:"no_winner"`
	Winners             string `json:"winners"`
	HostedBy            string `json:"hosted_by"`
	WinningChance       string `json:"winning_chance"`
	Entries             string `json:"entries"`
	FinalCountdown      string `json:"final_countdown"`
	DropMessage         string `json:"drop_message"`
}

// DefaultMessages returns the English template bundle.
func DefaultMessages() *Messages {
	return &Messages{
		Giveaway:            "🎉 **GIVEAWAY** 🎉",
		GiveawayEnded:       "🎉 **GIVEAWAY ENDED** 🎉",
		Title:               "{prize}",
		InviteToParticipate: "React with {reaction} to participate!",
		TimeRemaining:       "Time remaining: **{timeRemaining}**",
		WinMessage:          "Congratulations, {winners}! You won **{prize}**!",
		NoWinner:            "The giveaway was cancelled, no valid participations.",
		Winners:             "Winner(s): {winners}",
		HostedBy:            "Hosted by: {hostedBy}",
		WinningChance:       "Winning chance: **{winningChance}**",
		Entries:             "Entries: **{entries}**",
		FinalCountdown:      "Ends in **{count}**...",
		DropMessage:         "Be the first to react with {reaction}!",
	}
}

// WithDefaults returns the bundle with every empty template replaced by the
// default, so rendering never sees a blank template.
func (m *Messages) WithDefaults() *Messages {
	def := DefaultMessages()
	if m == nil {
		return def
	}
	out := *m
	if out.Giveaway == "" {
		out.Giveaway = def.Giveaway
	}
	if out.GiveawayEnded == "" {
		out.GiveawayEnded = def.GiveawayEnded
	}
	if out.Title == "" {
		out.Title = def.Title
	}
	if out.InviteToParticipate == "" {
		out.InviteToParticipate = def.InviteToParticipate
	}
	if out.TimeRemaining == "" {
		out.TimeRemaining = def.TimeRemaining
	}
	if out.WinMessage == "" {
		out.WinMessage = def.WinMessage
	}
	if out.NoWinner == "" {
		out.NoWinner = def.NoWinner
	}
	if out.Winners == "" {
		out.Winners = def.Winners
	}
	if out.HostedBy == "" {
		out.HostedBy = def.HostedBy
	}
	if out.WinningChance == "" {
		out.WinningChance = def.WinningChance
	}
	if out.Entries == "" {
		out.Entries = def.Entries
	}
	if out.FinalCountdown == "" {
		out.FinalCountdown = def.FinalCountdown
	}
	if out.DropMessage == "" {
		out.DropMessage = def.DropMessage
	}
	return &out
}
