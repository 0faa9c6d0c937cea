package service

import (
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// ReactionEvent is an inbound reaction notification from the platform client.
type ReactionEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	Emoji     string
}

// Observer receives the engine's outbound signals. Implementations must not
// block; they are invoked synchronously from manager and scheduler paths.
type Observer interface {
	GiveawayEnded(giveaway *models.Giveaway, winners []*platform.Member)
	GiveawayRerolled(giveaway *models.Giveaway, winners []*platform.Member)
	EntryAdded(giveaway *models.Giveaway, userID string)
	EntryRemoved(giveaway *models.Giveaway, userID string)
}

// NopObserver ignores every signal.
type NopObserver struct{}

func (NopObserver) GiveawayEnded(*models.Giveaway, []*platform.Member)    {}
func (NopObserver) GiveawayRerolled(*models.Giveaway, []*platform.Member) {}
func (NopObserver) EntryAdded(*models.Giveaway, string)                   {}
func (NopObserver) EntryRemoved(*models.Giveaway, string)                 {}
