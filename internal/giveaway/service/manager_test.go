package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

func startGiveaway(t *testing.T, f *testFixture, opts *models.StartOptions) *Entity {
	t.Helper()
	if opts == nil {
		opts = &models.StartOptions{
			Duration:    10 * time.Second,
			Prize:       "Nitro",
			WinnerCount: 1,
		}
	}
	e, err := f.manager.Start(context.Background(), "chan-1", "guild-1", opts)
	require.NoError(t, err)
	return e
}

func TestStartValidation(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	cases := []struct {
		name  string
		opts  *models.StartOptions
		field string
	}{
		{"zero duration", &models.StartOptions{Prize: "p", WinnerCount: 1}, "duration"},
		{"negative duration", &models.StartOptions{Duration: -time.Second, Prize: "p", WinnerCount: 1}, "duration"},
		{"empty prize", &models.StartOptions{Duration: time.Minute, WinnerCount: 1}, "prize"},
		{"zero winners", &models.StartOptions{Duration: time.Minute, Prize: "p"}, "winner_count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.manager.Start(ctx, "chan-1", "guild-1", tc.opts)
			require.Error(t, err)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
			assert.Equal(t, tc.field, appErr.Details["field"])
		})
	}
}

func TestStartBeforeHydrationFails(t *testing.T) {
	manager, err := New(&Config{
		Client: newFakeClient(),
		Store:  newMemoryStore(),
	})
	require.NoError(t, err)

	_, err = manager.Start(context.Background(), "chan-1", "guild-1", &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "p",
		WinnerCount: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotReady))
}

func TestStartCreatesAndPersistsRecord(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "Nitro",
		WinnerCount: 3,
		HostedBy:    "<@host>",
	})
	record := e.Snapshot()

	assert.Equal(t, testNow, record.StartAt)
	assert.Equal(t, testNow.Add(time.Minute), record.EndAt)
	assert.Equal(t, 3, record.WinnerCount)
	assert.Equal(t, "🎉", record.Reaction)
	assert.Equal(t, "#FF0000", record.EmbedColor)
	assert.False(t, record.Ended)
	assert.NotEmpty(t, record.MessageID)
	assert.NotEmpty(t, record.ID)

	stored := f.store.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, record.ID, stored[0].ID)
	assert.Equal(t, record.MessageID, stored[0].MessageID)

	// The announcement was posted.
	require.Equal(t, 1, f.client.sentCount())
	assert.Equal(t, "chan-1", f.client.lastSent().channelID)
}

func TestEndSelectsWinnerAmongEntrants(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u1"}, member("guild-1", "u1"))
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u2"}, member("guild-1", "u2"))

	winners, err := f.manager.End(ctx, msgID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Contains(t, []string{"u1", "u2"}, winners[0].User.ID)

	record := e.Snapshot()
	assert.True(t, record.Ended)
	assert.Equal(t, []string{winners[0].User.ID}, record.WinnerIDs)

	// Terminal state persisted and signalled.
	stored := f.store.stored()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Ended)
	require.Len(t, f.observer.ended, 1)

	// Congratulation follow-up was posted.
	assert.Equal(t, 2, f.client.sentCount())
	assert.Contains(t, f.client.lastSent().content, winners[0].User.ID)
}

func TestEndTwiceFailsWithoutMutation(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()
	_, err = f.manager.End(ctx, msgID)
	require.NoError(t, err)
	before := f.store.stored()

	_, err = f.manager.End(ctx, msgID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyEnded))
	assert.Equal(t, before, f.store.stored())
}

func TestEndUnknownMessage(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	_, err = f.manager.End(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeGiveawayNotFound))
}

func TestEndWithAllEntrantsExemptHasNoWinner(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    10 * time.Second,
		Prize:       "Nitro",
		WinnerCount: 1,
		ExemptMembers: func(ctx context.Context, m *platform.Member) (bool, error) {
			return true, nil
		},
	})
	msgID := e.MessageID()
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u1"}, member("guild-1", "u1"))
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u2"}, member("guild-1", "u2"))

	winners, err := f.manager.End(ctx, msgID)
	require.NoError(t, err)
	assert.Empty(t, winners)

	// No congratulation message, and the terminal embed says there is no
	// winner.
	assert.Equal(t, 1, f.client.sentCount())
	assert.Contains(t, f.client.lastEdit().embed.Description, "no valid participations")
}

func TestEndWhenChannelUnavailable(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, nil)
	f.client.missingChannels["chan-1"] = true

	_, err = f.manager.End(context.Background(), e.MessageID())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeChannelUnavailable))
	assert.False(t, e.Ended())
}

func TestEndWhenAnnouncementDeleted(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, nil)
	f.client.removeMessage(e.MessageID())

	_, err = f.manager.End(context.Background(), e.MessageID())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessageNotFound))
}

func TestRerollRequiresEnded(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, nil)
	_, err = f.manager.Reroll(context.Background(), e.MessageID(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotYetEnded))
}

func TestRerollDrawsDistinctWinners(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		f.client.addReactor(msgID, "guild-1", platform.User{ID: id}, member("guild-1", id))
	}
	_, err = f.manager.End(ctx, msgID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		winners, err := f.manager.Reroll(ctx, msgID, &models.RerollOptions{WinnerCount: 2})
		require.NoError(t, err)
		require.Len(t, winners, 2)
		assert.NotEqual(t, winners[0].User.ID, winners[1].User.ID)
		assert.True(t, e.Ended())
	}
	assert.Len(t, f.observer.rerolled, 5)
}

func TestEditAppliesPartialMutations(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "Nitro",
		WinnerCount: 1,
	})
	msgID := e.MessageID()

	newPrize := "Nitro Classic"
	newCount := 2
	addTime := 30 * time.Second
	_, err = f.manager.Edit(ctx, msgID, &models.EditOptions{
		NewPrize:       &newPrize,
		NewWinnerCount: &newCount,
		AddTime:        &addTime,
	})
	require.NoError(t, err)

	record := e.Snapshot()
	assert.Equal(t, "Nitro Classic", record.Prize)
	assert.Equal(t, 2, record.WinnerCount)
	assert.Equal(t, testNow.Add(time.Minute+30*time.Second), record.EndAt)

	override := testNow.Add(2 * time.Hour)
	_, err = f.manager.Edit(ctx, msgID, &models.EditOptions{SetEndTimestamp: &override})
	require.NoError(t, err)
	assert.Equal(t, override, e.Snapshot().EndAt)
}

func TestEditAfterEndFails(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	_, err = f.manager.End(ctx, e.MessageID())
	require.NoError(t, err)
	before := f.store.stored()

	newPrize := "changed"
	_, err = f.manager.Edit(ctx, e.MessageID(), &models.EditOptions{NewPrize: &newPrize})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyEnded))
	assert.Equal(t, before, f.store.stored())
}

func TestDeleteRemovesFromCollectionAndStore(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()

	require.NoError(t, f.manager.Delete(ctx, msgID, false))

	assert.Empty(t, f.manager.List())
	assert.Empty(t, f.store.stored())
	assert.Contains(t, f.client.deleted, msgID)

	_, err = f.manager.Get(msgID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeGiveawayNotFound))
}

func TestDeleteKeepMessage(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, nil)
	require.NoError(t, f.manager.Delete(context.Background(), e.MessageID(), true))
	assert.Empty(t, f.client.deleted)
}

func TestValidEntryCountDivergesFromEligibleSet(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()

	// One resolvable member, one bot, one user who left the guild, plus the
	// engine's own reaction.
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u1"}, member("guild-1", "u1"))
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "b1", Bot: true}, nil)
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "gone"}, nil)
	f.client.addReactor(msgID, "guild-1", f.client.self, nil)

	count, err := f.manager.ValidEntryCount(ctx, msgID)
	require.NoError(t, err)
	// Self is excluded, the bot and the departed user are not: the entry
	// count runs before the eligibility filters.
	assert.Equal(t, 3, count)

	chance, err := f.manager.WinningChance(ctx, msgID)
	require.NoError(t, err)
	// Only u1 survives the filters.
	assert.Equal(t, "100.0%", chance)
}

func TestTimeRemainingText(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    90 * time.Second,
		Prize:       "p",
		WinnerCount: 1,
	})

	text, err := f.manager.TimeRemainingText(e.MessageID())
	require.NoError(t, err)
	assert.Equal(t, "1m30s", text)

	f.clock.Advance(2 * time.Minute)
	text, err = f.manager.TimeRemainingText(e.MessageID())
	require.NoError(t, err)
	assert.Equal(t, "0s", text)
}

func TestHydrateRestoresGiveaways(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	e := startGiveaway(t, f, nil)

	// A second manager over the same store sees the same giveaway.
	manager2, err := New(&Config{
		Client: f.client,
		Store:  f.store,
		Clock:  f.clock,
	})
	require.NoError(t, err)
	require.NoError(t, manager2.Hydrate(context.Background()))

	restored, err := manager2.Get(e.MessageID())
	require.NoError(t, err)
	assert.Equal(t, e.ID(), restored.ID())
	assert.Equal(t, e.Snapshot().Prize, restored.Snapshot().Prize)
}

func TestPauseFreezesCountdown(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "p",
		WinnerCount: 1,
	})

	f.clock.Advance(20 * time.Second)
	_, err = f.manager.Pause(ctx, e.MessageID(), time.Time{})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.Equal(t, 40*time.Second, e.RemainingTime(f.clock.Now()))
	record := e.Snapshot()
	assert.False(t, record.HasExpired(f.clock.Now()))

	_, err = f.manager.Unpause(ctx, e.MessageID())
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, e.RemainingTime(f.clock.Now()))
	assert.Equal(t, f.clock.Now().Add(40*time.Second), e.Snapshot().EndAt)
}

func TestPauseTwiceFails(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	_, err = f.manager.Pause(ctx, e.MessageID(), time.Time{})
	require.NoError(t, err)
	_, err = f.manager.Pause(ctx, e.MessageID(), time.Time{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestHandleReactionSignals(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, nil)
	msgID := e.MessageID()

	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: msgID, UserID: "u1", Emoji: "🎉"})
	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: msgID, UserID: "u2", Emoji: "🙂"})
	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: msgID, UserID: f.client.self.ID, Emoji: "🎉"})
	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: "unknown", UserID: "u3", Emoji: "🎉"})
	f.manager.HandleReactionRemove(ctx, ReactionEvent{MessageID: msgID, UserID: "u1", Emoji: "🎉"})

	assert.Equal(t, []string{"u1"}, f.observer.added)
	assert.Equal(t, []string{"u1"}, f.observer.removed)
}

func TestDropEndsOnceEnoughEntries(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    time.Hour,
		Prize:       "p",
		WinnerCount: 1,
		IsDrop:      true,
	})
	msgID := e.MessageID()

	// No entries yet: the drop stays open.
	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: msgID, UserID: "u1", Emoji: "🎉"})
	f.client.addReactor(msgID, "guild-1", platform.User{ID: "u1"}, member("guild-1", "u1"))
	f.manager.HandleReactionAdd(ctx, ReactionEvent{MessageID: msgID, UserID: "u1", Emoji: "🎉"})

	assert.True(t, e.Ended())
	record := e.Snapshot()
	assert.Equal(t, []string{"u1"}, record.WinnerIDs)
}

func TestStartRollsBackWhenPersistFails(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	f.store.setSaveErr(errors.New("disk full"))
	_, err = f.manager.Start(context.Background(), "chan-1", "guild-1", &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "Nitro",
		WinnerCount: 1,
	})
	require.Error(t, err)

	// Nothing is registered and the orphaned announcement is taken down.
	assert.Empty(t, f.manager.List())
	require.Len(t, f.client.deleted, 1)

	// A later attempt with a healthy store succeeds.
	f.store.setSaveErr(nil)
	e, err := f.manager.Start(context.Background(), "chan-1", "guild-1", &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "Nitro",
		WinnerCount: 1,
	})
	require.NoError(t, err)
	_, err = f.manager.Get(e.MessageID())
	require.NoError(t, err)
}

func TestInterleavedSaveKeepsTerminalState(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	f.client.invites["abc"] = "Gopher Hangout"
	e := startGiveaway(t, f, &models.StartOptions{
		Duration:          time.Minute,
		Prize:             "Nitro",
		WinnerCount:       1,
		ServerRequirement: []string{"abc"},
	})

	// Hold the requirement sweep's store write open while End runs to
	// completion, the interleaving that could regress the persisted terminal
	// flag to a stale pre-end snapshot.
	gate, entered := f.store.gateNextSave()
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		f.manager.requirementSweep(ctx)
	}()
	<-entered

	endDone := make(chan error, 1)
	go func() {
		_, endErr := f.manager.End(ctx, e.MessageID())
		endDone <- endErr
	}()

	time.Sleep(50 * time.Millisecond)
	close(gate)
	require.NoError(t, <-endDone)
	<-sweepDone

	assert.True(t, e.Ended())
	stored := f.store.stored()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Ended)
}

func TestListReturnsInsertionOrder(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	first := startGiveaway(t, f, &models.StartOptions{Duration: time.Minute, Prize: "a", WinnerCount: 1})
	second := startGiveaway(t, f, &models.StartOptions{Duration: time.Minute, Prize: "b", WinnerCount: 1})

	list := f.manager.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID(), list[0].ID)
	assert.Equal(t, second.ID(), list[1].ID)
}

func TestWinMessageMentionsAllWinners(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	ctx := context.Background()

	e := startGiveaway(t, f, &models.StartOptions{
		Duration:    time.Minute,
		Prize:       "p",
		WinnerCount: 3,
	})
	msgID := e.MessageID()
	for _, id := range []string{"u1", "u2", "u3"} {
		f.client.addReactor(msgID, "guild-1", platform.User{ID: id}, member("guild-1", id))
	}

	winners, err := f.manager.End(ctx, msgID)
	require.NoError(t, err)
	require.Len(t, winners, 3)

	content := f.client.lastSent().content
	for _, w := range winners {
		assert.True(t, strings.Contains(content, w.User.ID))
	}
}
