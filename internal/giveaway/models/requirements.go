package models

import (
	"fmt"
	"strings"
	"time"
)

// RequirementText renders the informational eligibility text shown in the
// announcement. These lines are advisory only: apart from the exemption
// filters, the selection algorithm does not enforce them.
func (g *Giveaway) RequirementText() string {
	var lines []string

	if len(g.RoleRequirement) == 1 {
		lines = append(lines, fmt.Sprintf("Required role: <@&%s>", g.RoleRequirement[0]))
	} else if len(g.RoleRequirement) > 1 {
		mentions := make([]string, 0, len(g.RoleRequirement))
		for _, r := range g.RoleRequirement {
			mentions = append(mentions, fmt.Sprintf("<@&%s>", r))
		}
		lines = append(lines, "Required roles: "+strings.Join(mentions, ", "))
	}

	if g.JoinedRequirement > 0 {
		lines = append(lines, fmt.Sprintf("Must be a member for at least %s", humanDuration(g.JoinedRequirement)))
	}
	if g.AgeRequirement > 0 {
		lines = append(lines, fmt.Sprintf("Account must be older than %s", humanDuration(g.AgeRequirement)))
	}
	if g.MessageRequirement > 0 {
		lines = append(lines, fmt.Sprintf("Must have sent at least %d messages", g.MessageRequirement))
	}
	if g.ServersList != "" {
		lines = append(lines, g.ServersList)
	}
	if len(g.BypassRoles) > 0 {
		mentions := make([]string, 0, len(g.BypassRoles))
		for _, r := range g.BypassRoles {
			mentions = append(mentions, fmt.Sprintf("<@&%s>", r))
		}
		lines = append(lines, "Bypass roles: "+strings.Join(mentions, ", "))
	}

	return strings.Join(lines, "\n")
}

// humanDuration formats a duration in the largest sensible unit.
func humanDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d >= day && d%day == 0:
		days := int(d / day)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour && d%time.Hour == 0:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		return d.String()
	}
}
