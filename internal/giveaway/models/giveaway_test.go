package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	valid := Giveaway{
		Prize:       "Nitro",
		WinnerCount: 1,
		StartAt:     baseTime,
		EndAt:       baseTime.Add(time.Minute),
	}
	assert.NoError(t, valid.Validate())

	noPrize := valid
	noPrize.Prize = ""
	assert.ErrorIs(t, noPrize.Validate(), ErrEmptyPrize)

	noWinners := valid
	noWinners.WinnerCount = 0
	assert.ErrorIs(t, noWinners.Validate(), ErrInvalidWinners)

	backwards := valid
	backwards.EndAt = baseTime.Add(-time.Minute)
	assert.ErrorIs(t, backwards.Validate(), ErrInvalidDuration)
}

func TestRemainingTime(t *testing.T) {
	g := Giveaway{EndAt: baseTime.Add(time.Minute)}

	assert.Equal(t, time.Minute, g.RemainingTime(baseTime))
	assert.Equal(t, 10*time.Second, g.RemainingTime(baseTime.Add(50*time.Second)))
	assert.Equal(t, -time.Minute, g.RemainingTime(baseTime.Add(2*time.Minute)))
}

func TestRemainingTimeWhilePaused(t *testing.T) {
	g := Giveaway{
		EndAt: baseTime.Add(time.Minute),
		Pause: PauseOptions{IsPaused: true, RemainingAtPause: 42 * time.Second},
	}

	// The frozen countdown holds however far the wall clock moves.
	assert.Equal(t, 42*time.Second, g.RemainingTime(baseTime))
	assert.Equal(t, 42*time.Second, g.RemainingTime(baseTime.Add(24*time.Hour)))
	assert.False(t, g.HasExpired(baseTime.Add(24*time.Hour)))
}

func TestHasExpired(t *testing.T) {
	g := Giveaway{EndAt: baseTime.Add(time.Minute)}

	assert.False(t, g.HasExpired(baseTime))
	assert.True(t, g.HasExpired(baseTime.Add(time.Minute)))
	assert.True(t, g.HasExpired(baseTime.Add(time.Hour)))
}

func TestMessagesWithDefaults(t *testing.T) {
	var nilBundle *Messages
	assert.Equal(t, DefaultMessages(), nilBundle.WithDefaults())

	partial := &Messages{WinMessage: "GG {winners}, enjoy {prize}"}
	merged := partial.WithDefaults()
	assert.Equal(t, "GG {winners}, enjoy {prize}", merged.WinMessage)
	assert.Equal(t, DefaultMessages().NoWinner, merged.NoWinner)
	assert.Equal(t, DefaultMessages().Title, merged.Title)

	// The receiver is never mutated.
	assert.Empty(t, partial.NoWinner)
}

func TestEditOptionsIsZero(t *testing.T) {
	var nilOpts *EditOptions
	assert.True(t, nilOpts.IsZero())
	assert.True(t, (&EditOptions{}).IsZero())

	prize := "p"
	assert.False(t, (&EditOptions{NewPrize: &prize}).IsZero())
	delta := time.Minute
	assert.False(t, (&EditOptions{AddTime: &delta}).IsZero())
}

func TestRequirementText(t *testing.T) {
	empty := Giveaway{}
	assert.Equal(t, "", empty.RequirementText())

	g := Giveaway{
		RoleRequirement:    []string{"r1", "r2"},
		JoinedRequirement:  7 * 24 * time.Hour,
		AgeRequirement:     36 * time.Hour,
		MessageRequirement: 50,
		ServersList:        "• Must join **Gopher Hangout**",
		BypassRoles:        []string{"mod"},
	}
	text := g.RequirementText()
	assert.Contains(t, text, "Required roles: <@&r1>, <@&r2>")
	assert.Contains(t, text, "Must be a member for at least 7 days")
	assert.Contains(t, text, "Account must be older than 36 hours")
	assert.Contains(t, text, "Must have sent at least 50 messages")
	assert.Contains(t, text, "• Must join **Gopher Hangout**")
	assert.Contains(t, text, "Bypass roles: <@&mod>")

	single := Giveaway{RoleRequirement: []string{"r1"}}
	assert.Equal(t, "Required role: <@&r1>", single.RequirementText())
}

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{24 * time.Hour, "1 day"},
		{3 * 24 * time.Hour, "3 days"},
		{time.Hour, "1 hour"},
		{36 * time.Hour, "36 hours"},
		{90 * time.Minute, "1h30m0s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, humanDuration(tc.d))
	}
}
