package service

import (
	"context"
	"time"

	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// GiveawayManager is the public contract of the lifecycle engine. *Manager is
// the sole implementation; the interface exists for upstream consumers (HTTP
// delivery, tests) to depend on.
type GiveawayManager interface {
	Start(ctx context.Context, channelID, guildID string, opts *models.StartOptions) (*Entity, error)
	End(ctx context.Context, messageID string) ([]*platform.Member, error)
	Reroll(ctx context.Context, messageID string, opts *models.RerollOptions) ([]*platform.Member, error)
	Edit(ctx context.Context, messageID string, opts *models.EditOptions) (*Entity, error)
	Delete(ctx context.Context, messageID string, keepMessage bool) error
	Pause(ctx context.Context, messageID string, unpauseAfter time.Time) (*Entity, error)
	Unpause(ctx context.Context, messageID string) (*Entity, error)

	ValidEntryCount(ctx context.Context, messageID string) (int, error)
	WinningChance(ctx context.Context, messageID string) (string, error)
	TimeRemainingText(messageID string) (string, error)
	Get(messageID string) (*Entity, error)
	List() []models.Giveaway

	HandleReactionAdd(ctx context.Context, event ReactionEvent)
	HandleReactionRemove(ctx context.Context, event ReactionEvent)
}
