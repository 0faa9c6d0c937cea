package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// RenderState carries the live values substituted into the announcement.
type RenderState struct {
	TimeRemaining string
	WinningChance string
	Entries       int
}

// Renderer produces the user-visible content for each lifecycle moment.
// Rendering is a collaborator concern; the engine only decides when to call
// it.
type Renderer interface {
	Announcement(g *models.Giveaway, state *RenderState) (string, *platform.Embed)
	FinalCountdown(g *models.Giveaway, secondsLeft int) (string, *platform.Embed)
	Ended(g *models.Giveaway, winners []*platform.Member) (string, *platform.Embed)
	WinMessage(g *models.Giveaway, winners []*platform.Member) string
}

// templateRenderer renders from the record's message bundle via placeholder
// substitution.
type templateRenderer struct{}

// NewTemplateRenderer returns the default bundle-driven renderer.
func NewTemplateRenderer() Renderer {
	return &templateRenderer{}
}

func (r *templateRenderer) Announcement(g *models.Giveaway, state *RenderState) (string, *platform.Embed) {
	msgs := g.Messages.WithDefaults()
	rep := replacerFor(g, state, nil, 0)

	var body []string
	if g.IsDrop {
		body = append(body, rep.Replace(msgs.DropMessage))
	} else {
		body = append(body, rep.Replace(msgs.InviteToParticipate))
		if state != nil {
			body = append(body,
				rep.Replace(msgs.TimeRemaining),
				rep.Replace(msgs.WinningChance),
				rep.Replace(msgs.Entries),
			)
		}
	}
	if g.HostedBy != "" {
		body = append(body, rep.Replace(msgs.HostedBy))
	}
	if req := g.RequirementText(); req != "" {
		body = append(body, "", req)
	}

	embed := &platform.Embed{
		Title:       rep.Replace(msgs.Title),
		Description: strings.Join(body, "\n"),
		Color:       g.EmbedColor,
		Footer:      fmt.Sprintf("%d winner(s)", g.WinnerCount),
		Timestamp:   g.EndAt,
	}
	return rep.Replace(msgs.Giveaway), embed
}

func (r *templateRenderer) FinalCountdown(g *models.Giveaway, secondsLeft int) (string, *platform.Embed) {
	msgs := g.Messages.WithDefaults()
	rep := replacerFor(g, nil, nil, secondsLeft)

	embed := &platform.Embed{
		Title:       rep.Replace(msgs.Title),
		Description: rep.Replace(msgs.FinalCountdown),
		Color:       g.EmbedColor,
		Timestamp:   g.EndAt,
	}
	return rep.Replace(msgs.Giveaway), embed
}

func (r *templateRenderer) Ended(g *models.Giveaway, winners []*platform.Member) (string, *platform.Embed) {
	msgs := g.Messages.WithDefaults()
	rep := replacerFor(g, nil, winners, 0)

	var description string
	if len(winners) == 0 {
		description = rep.Replace(msgs.NoWinner)
	} else {
		description = rep.Replace(msgs.Winners)
	}
	if g.HostedBy != "" {
		description += "\n" + rep.Replace(msgs.HostedBy)
	}

	embed := &platform.Embed{
		Title:       rep.Replace(msgs.Title),
		Description: description,
		Color:       g.EmbedColorEnd,
		Footer:      "Ended at",
		Timestamp:   g.EndAt,
	}
	return rep.Replace(msgs.GiveawayEnded), embed
}

func (r *templateRenderer) WinMessage(g *models.Giveaway, winners []*platform.Member) string {
	msgs := g.Messages.WithDefaults()
	return replacerFor(g, nil, winners, 0).Replace(msgs.WinMessage)
}

func replacerFor(g *models.Giveaway, state *RenderState, winners []*platform.Member, secondsLeft int) *strings.Replacer {
	pairs := []string{
		"{prize}", g.Prize,
		"{reaction}", g.Reaction,
		"{winnerCount}", strconv.Itoa(g.WinnerCount),
		"{hostedBy}", g.HostedBy,
		"{winners}", mentionMembers(winners),
		"{count}", strconv.Itoa(secondsLeft),
	}
	if state != nil {
		pairs = append(pairs,
			"{timeRemaining}", state.TimeRemaining,
			"{winningChance}", state.WinningChance,
			"{entries}", strconv.Itoa(state.Entries),
		)
	}
	return strings.NewReplacer(pairs...)
}

func mentionMembers(members []*platform.Member) string {
	mentions := make([]string, 0, len(members))
	for _, m := range members {
		mentions = append(mentions, fmt.Sprintf("<@%s>", m.User.ID))
	}
	return strings.Join(mentions, ", ")
}

// timeRemainingText humanizes a countdown for display. Elapsed or paused
// countdowns clamp at zero.
func timeRemainingText(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
