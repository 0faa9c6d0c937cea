package service

import (
	"context"
	"errors"
	"time"

	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// fetchAnnouncement loads the live announcement message and classifies a
// vanished channel or message into the matching application error.
func (m *Manager) fetchAnnouncement(ctx context.Context, g *models.Giveaway) (*platform.Message, error) {
	msg, err := m.client.FetchMessage(ctx, g.ChannelID, g.MessageID)
	switch {
	case err == nil:
		return msg, nil
	case errors.Is(err, platform.ErrChannelNotFound):
		return nil, apperrors.NewChannelUnavailableError(g.ChannelID, err)
	case errors.Is(err, platform.ErrMessageNotFound):
		return nil, apperrors.NewMessageNotFoundError(g.MessageID)
	default:
		return nil, apperrors.NewPlatformAPIError("fetch announcement", err)
	}
}

// end runs the Active to Ended transition. The entity lock is held through
// the check, the selection and the flag flip, so the transition happens
// exactly once no matter how many ticks or callers race for it.
func (m *Manager) end(ctx context.Context, e *Entity) ([]*platform.Member, error) {
	e.mu.Lock()

	if e.record.Ended {
		messageID := e.record.MessageID
		e.mu.Unlock()
		return nil, apperrors.NewAlreadyEndedError(messageID)
	}

	msg, err := m.fetchAnnouncement(ctx, e.record)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.message = msg

	users, err := m.entrants(ctx, e.record)
	if err != nil {
		e.mu.Unlock()
		return nil, apperrors.NewPlatformAPIError("list reactors", err)
	}
	eligible := m.eligibleFrom(ctx, e.record, users)

	winners, err := pickWinners(eligible, e.record.WinnerCount)
	if err != nil {
		e.mu.Unlock()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed")
	}

	e.record.Ended = true
	e.record.WinnerIDs = make([]string, 0, len(winners))
	for _, w := range winners {
		e.record.WinnerIDs = append(e.record.WinnerIDs, w.User.ID)
	}
	record := e.snapshotLocked()
	e.mu.Unlock()

	if err := m.saveAll(ctx); err != nil {
		return nil, err
	}

	m.observer.GiveawayEnded(&record, winners)

	content, embed := m.renderer.Ended(&record, winners)
	if err := m.client.EditMessage(ctx, record.ChannelID, record.MessageID, content, embed); err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not edit announcement to terminal embed")
	}

	if len(winners) > 0 {
		if _, err := m.client.SendMessage(ctx, record.ChannelID, m.renderer.WinMessage(&record, winners), nil); err != nil {
			m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not announce winners")
		}
	}

	m.logger.Info().
		Str("giveaway_id", record.ID).
		Int("entries", len(users)).
		Int("eligible", len(eligible)).
		Int("winners", len(winners)).
		Msg("Giveaway ended")
	return winners, nil
}

// reroll re-draws winners on an ended giveaway and announces them. It never
// touches the terminal flag.
func (m *Manager) reroll(ctx context.Context, e *Entity, opts *models.RerollOptions) ([]*platform.Member, error) {
	e.mu.Lock()

	if !e.record.Ended {
		messageID := e.record.MessageID
		e.mu.Unlock()
		return nil, apperrors.NewNotYetEndedError(messageID)
	}

	msg, err := m.fetchAnnouncement(ctx, e.record)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.message = msg

	winnerCount := e.record.WinnerCount
	if opts != nil && opts.WinnerCount > 0 {
		winnerCount = opts.WinnerCount
	}

	eligible, err := m.eligibleMembers(ctx, e.record)
	if err != nil {
		e.mu.Unlock()
		return nil, apperrors.NewPlatformAPIError("resolve eligible members", err)
	}

	winners, err := pickWinners(eligible, winnerCount)
	if err != nil {
		e.mu.Unlock()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed")
	}

	record := e.snapshotLocked()
	e.mu.Unlock()

	if opts != nil && opts.Messages != nil {
		record.Messages = opts.Messages.WithDefaults()
	}

	m.observer.GiveawayRerolled(&record, winners)

	var announcement string
	if len(winners) > 0 {
		announcement = m.renderer.WinMessage(&record, winners)
	} else {
		announcement = record.Messages.WithDefaults().NoWinner
	}
	if _, err := m.client.SendMessage(ctx, record.ChannelID, announcement, nil); err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not announce reroll result")
	}

	m.logger.Info().
		Str("giveaway_id", record.ID).
		Int("winners", len(winners)).
		Msg("Giveaway rerolled")
	return winners, nil
}

// edit applies a partial mutation to a running giveaway and refreshes the
// announcement.
func (m *Manager) edit(ctx context.Context, e *Entity, opts *models.EditOptions) error {
	if opts.IsZero() {
		return apperrors.NewValidationError("options", "no fields to edit")
	}
	if opts.NewWinnerCount != nil && *opts.NewWinnerCount < 1 {
		return apperrors.NewValidationError("new_winner_count", "must be a positive integer")
	}
	if opts.NewPrize != nil && *opts.NewPrize == "" {
		return apperrors.NewValidationError("new_prize", "must not be empty")
	}

	e.mu.Lock()

	if e.record.Ended {
		messageID := e.record.MessageID
		e.mu.Unlock()
		return apperrors.NewAlreadyEndedError(messageID)
	}

	msg, err := m.fetchAnnouncement(ctx, e.record)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.message = msg

	if opts.NewWinnerCount != nil {
		e.record.WinnerCount = *opts.NewWinnerCount
	}
	if opts.NewPrize != nil {
		e.record.Prize = *opts.NewPrize
	}
	if opts.AddTime != nil {
		e.record.EndAt = e.record.EndAt.Add(*opts.AddTime)
	}
	if opts.SetEndTimestamp != nil {
		e.record.EndAt = *opts.SetEndTimestamp
	}
	if opts.NewMessages != nil {
		e.record.Messages = opts.NewMessages.WithDefaults()
	}
	if opts.AddTime != nil || opts.SetEndTimestamp != nil {
		// The deadline moved; let a fresh one-shot timer arm against it.
		e.expiryArmed = false
	}
	record := e.snapshotLocked()
	e.mu.Unlock()

	if err := m.saveAll(ctx); err != nil {
		return err
	}

	if err := m.refreshAnnouncement(ctx, e); err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not refresh announcement after edit")
	}

	m.logger.Info().Str("giveaway_id", record.ID).Msg("Giveaway edited")
	return nil
}

// pause freezes the countdown.
func (m *Manager) pause(ctx context.Context, e *Entity, unpauseAfter time.Time) error {
	e.mu.Lock()

	if e.record.Ended {
		messageID := e.record.MessageID
		e.mu.Unlock()
		return apperrors.NewAlreadyEndedError(messageID)
	}
	if e.record.Pause.IsPaused {
		e.mu.Unlock()
		return apperrors.NewValidationError("pause", "giveaway is already paused")
	}

	e.record.Pause = models.PauseOptions{
		IsPaused:         true,
		UnpauseAfter:     unpauseAfter,
		RemainingAtPause: e.record.RemainingTime(m.clock.Now()),
	}
	record := e.snapshotLocked()
	e.mu.Unlock()

	if err := m.saveAll(ctx); err != nil {
		return err
	}
	if err := m.refreshAnnouncement(ctx, e); err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not refresh announcement after pause")
	}

	m.logger.Info().Str("giveaway_id", record.ID).Msg("Giveaway paused")
	return nil
}

// unpause resumes the countdown from where it was frozen.
func (m *Manager) unpause(ctx context.Context, e *Entity) error {
	e.mu.Lock()

	if e.record.Ended {
		messageID := e.record.MessageID
		e.mu.Unlock()
		return apperrors.NewAlreadyEndedError(messageID)
	}
	if !e.record.Pause.IsPaused {
		e.mu.Unlock()
		return apperrors.NewValidationError("pause", "giveaway is not paused")
	}

	e.record.EndAt = m.clock.Now().Add(e.record.Pause.RemainingAtPause)
	e.record.Pause = models.PauseOptions{}
	e.expiryArmed = false
	record := e.snapshotLocked()
	e.mu.Unlock()

	if err := m.saveAll(ctx); err != nil {
		return err
	}
	if err := m.refreshAnnouncement(ctx, e); err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not refresh announcement after unpause")
	}

	m.logger.Info().Str("giveaway_id", record.ID).Msg("Giveaway unpaused")
	return nil
}

// refreshAnnouncement re-renders the running announcement with current
// countdown, odds and entry figures.
func (m *Manager) refreshAnnouncement(ctx context.Context, e *Entity) error {
	record := e.Snapshot()

	users, err := m.entrants(ctx, &record)
	if err != nil {
		return apperrors.NewPlatformAPIError("list reactors", err)
	}
	eligible := m.eligibleFrom(ctx, &record, users)

	state := &RenderState{
		TimeRemaining: timeRemainingText(record.RemainingTime(m.clock.Now())),
		WinningChance: winningChance(record.WinnerCount, len(eligible)),
		Entries:       len(users),
	}
	content, embed := m.renderer.Announcement(&record, state)
	if err := m.client.EditMessage(ctx, record.ChannelID, record.MessageID, content, embed); err != nil {
		switch {
		case errors.Is(err, platform.ErrChannelNotFound):
			return apperrors.NewChannelUnavailableError(record.ChannelID, err)
		case errors.Is(err, platform.ErrMessageNotFound):
			return apperrors.NewMessageNotFoundError(record.MessageID)
		default:
			return apperrors.NewPlatformAPIError("edit announcement", err)
		}
	}
	return nil
}
