package service

import (
	"context"
	"fmt"

	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
	"giveaway-engine/internal/utils/random"
)

// entrants lists every user who attached the configured reaction, excluding
// the account this process acts as. This is the display-level entry count and
// deliberately runs before the eligibility filters, so it can overstate the
// set that can actually win.
func (m *Manager) entrants(ctx context.Context, g *models.Giveaway) ([]platform.User, error) {
	users, err := m.client.MessageReactors(ctx, g.ChannelID, g.MessageID, g.Reaction)
	if err != nil {
		return nil, err
	}
	out := make([]platform.User, 0, len(users))
	for _, u := range users {
		if m.self.ID != "" && u.ID == m.self.ID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// eligibleMembers applies the winning filters in order: bot policy, guild
// membership, exemption predicate, exempt permissions. Both winner selection
// and the displayed winning chance read this same set.
func (m *Manager) eligibleMembers(ctx context.Context, g *models.Giveaway) ([]*platform.Member, error) {
	users, err := m.entrants(ctx, g)
	if err != nil {
		return nil, err
	}
	return m.eligibleFrom(ctx, g, users), nil
}

// eligibleFrom filters an already-listed entrant set.
func (m *Manager) eligibleFrom(ctx context.Context, g *models.Giveaway, users []platform.User) []*platform.Member {
	exempt := g.ExemptMembers
	if exempt == nil {
		exempt = m.defaults.ExemptMembers
	}

	eligible := make([]*platform.Member, 0, len(users))
	for _, u := range users {
		if u.Bot != g.BotsCanWin {
			continue
		}

		member, err := m.client.FetchMember(ctx, g.GuildID, u.ID)
		if err != nil {
			// The user reacted but is no longer resolvable in the guild.
			m.logger.Debug().
				Str("giveaway_id", g.ID).
				Str("user_id", u.ID).
				Err(err).
				Msg("Entrant not resolvable as member, skipping")
			continue
		}

		if exempt != nil {
			isExempt, err := exempt(ctx, member)
			if err != nil {
				// Fail open: a broken predicate must not void the draw.
				m.logger.Warn().
					Str("giveaway_id", g.ID).
					Str("user_id", u.ID).
					Err(err).
					Msg("Exempt predicate failed, treating member as not exempt")
			} else if isExempt {
				continue
			}
		}

		if len(g.ExemptPermissions) > 0 && member.HasAnyPermission(g.ExemptPermissions) {
			continue
		}

		eligible = append(eligible, member)
	}
	return eligible
}

// pickWinners draws winnerCount members uniformly without replacement. When
// fewer members are eligible than requested, all of them win.
func pickWinners(eligible []*platform.Member, winnerCount int) ([]*platform.Member, error) {
	winners, err := random.Sample(eligible, winnerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to draw winners: %w", err)
	}
	return winners, nil
}

// winningChance formats winnerCount over the eligible count, capped at 100%.
func winningChance(winnerCount, eligibleCount int) string {
	if eligibleCount < 1 {
		eligibleCount = 1
	}
	chance := float64(winnerCount) / float64(eligibleCount)
	if chance > 1 {
		chance = 1
	}
	return fmt.Sprintf("%.1f%%", chance*100)
}
