package service

import (
	"context"
	"fmt"
	"strings"

	"giveaway-engine/internal/platform"

	"github.com/rs/zerolog"
)

const unresolvedInvitesWarning = "⚠ Some required servers could not be resolved."

// RequirementResolver turns configured invite codes into the human-readable
// server requirement text. It never influences eligibility or lifecycle
// state, only the displayed text.
type RequirementResolver struct {
	invites platform.InviteResolver
	logger  zerolog.Logger
}

func NewRequirementResolver(invites platform.InviteResolver, logger zerolog.Logger) *RequirementResolver {
	return &RequirementResolver{invites: invites, logger: logger}
}

// ServerList resolves each invite code to its guild name and renders one
// requirement line per resolved code. Any number of failures collapses into a
// single generic warning line; failures never abort the remaining codes.
func (r *RequirementResolver) ServerList(ctx context.Context, codes []string) string {
	var lines []string
	failed := false

	for _, code := range codes {
		name, err := r.invites.ResolveInvite(ctx, code)
		if err != nil {
			r.logger.Debug().Str("invite", code).Err(err).Msg("Failed to resolve invite")
			failed = true
			continue
		}
		lines = append(lines, fmt.Sprintf("• Must join **%s**", name))
	}

	if failed {
		lines = append(lines, unresolvedInvitesWarning)
	}
	return strings.Join(lines, "\n")
}
