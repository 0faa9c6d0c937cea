package service

import (
	"context"
	"time"

	apperrors "giveaway-engine/internal/common/errors"
)

// Run starts the three scheduler loops. It must be called after Hydrate.
//
// The loops share nothing but the manager's entity table: one fast loop
// claims giveaways for the final-seconds animation, one refreshes running
// announcements and detects expiry, and one slow loop re-resolves server
// requirements. A handful of shared interval loops bounded by collection size
// is cheaper than a timer per giveaway; the displayed countdown is advisory
// text, the stored deadline stays authoritative.
func (m *Manager) Run() error {
	if !m.isReady() {
		return apperrors.NewNotReadyError()
	}

	m.runCtx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(3)
	go m.finalCountdownLoop(m.runCtx)
	go m.countdownLoop(m.runCtx)
	go m.requirementLoop(m.runCtx)

	m.logger.Info().
		Dur("countdown_interval", m.countdownInterval).
		Dur("requirement_interval", m.requirementInterval).
		Msg("Scheduler started")
	return nil
}

// Stop cancels the scheduler and waits for in-flight work to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info().Msg("Scheduler stopped")
}

// finalCountdownLoop ticks every second and claims giveaways whose countdown
// crossed below the threshold for the ending animation. This is the only path
// that ends a giveaway ahead of the countdown loop.
func (m *Manager) finalCountdownLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := m.clock.Now()
			for _, e := range m.snapshotEntities() {
				if !e.claimFinalCountdown(now, FinalCountdownThreshold) {
					continue
				}
				m.wg.Add(1)
				go func(e *Entity) {
					defer m.wg.Done()
					m.runFinalCountdown(ctx, e)
				}(e)
			}
		case <-ctx.Done():
			return
		}
	}
}

// runFinalCountdown plays the "3, 2, 1" frames on the announcement, one frame
// interval apart, and then ends the giveaway.
func (m *Manager) runFinalCountdown(ctx context.Context, e *Entity) {
	record := e.Snapshot()

	for i := FinalCountdownSteps; i >= 1; i-- {
		content, embed := m.renderer.FinalCountdown(&record, i)
		if err := m.client.EditMessage(ctx, record.ChannelID, record.MessageID, content, embed); err != nil {
			m.logger.Debug().Str("giveaway_id", record.ID).Err(err).Msg("Final countdown edit failed")
		}

		select {
		case <-time.After(m.finalCountdownFrame):
		case <-ctx.Done():
			return
		}
	}

	// An edit may have pushed the deadline out while the animation ran; hand
	// the giveaway back to the refresh loop instead of ending it early.
	if e.RemainingTime(m.clock.Now()) > FinalCountdownThreshold {
		e.mu.Lock()
		e.nearingEnd = false
		e.finalCountdownStarted = false
		e.mu.Unlock()
		return
	}

	m.endFromScheduler(ctx, e)
}

// countdownLoop refreshes running announcements, detects expiry and arms
// one-shot timers for deadlines that fall between two ticks.
func (m *Manager) countdownLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.countdownInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.countdownSweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) countdownSweep(ctx context.Context) {
	now := m.clock.Now()
	for _, e := range m.snapshotEntities() {
		if e.Ended() || e.inFinalCountdown() {
			continue
		}
		record := e.Snapshot()

		if record.Pause.IsPaused {
			if !record.Pause.UnpauseAfter.IsZero() && now.After(record.Pause.UnpauseAfter) {
				if err := m.unpause(ctx, e); err != nil {
					m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Scheduled unpause failed")
				}
			}
			continue
		}

		remaining := record.RemainingTime(now)
		if remaining <= 0 {
			m.endFromScheduler(ctx, e)
			continue
		}

		if err := m.refreshAnnouncement(ctx, e); err != nil {
			m.handleSchedulerError(ctx, e, err, "refresh announcement")
			continue
		}

		// The deadline lands before the next tick; arm a one-shot end so tick
		// drift cannot delay it.
		if remaining < m.countdownInterval && e.armExpiry() {
			time.AfterFunc(remaining, func() {
				if ctx.Err() != nil {
					return
				}
				m.endFromScheduler(ctx, e)
			})
		}
	}
}

// requirementLoop periodically re-resolves server requirements into fresh
// requirement text, with one delayed run shortly after startup.
func (m *Manager) requirementLoop(ctx context.Context) {
	defer m.wg.Done()

	initial := time.NewTimer(RequirementInitialDelay)
	defer initial.Stop()
	select {
	case <-initial.C:
		m.requirementSweep(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(m.requirementInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.requirementSweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) requirementSweep(ctx context.Context) {
	changed := false
	for _, e := range m.snapshotEntities() {
		record := e.Snapshot()
		if record.Ended || !record.HasServerRequirement() {
			continue
		}

		list := m.resolver.ServerList(ctx, record.ServerRequirement)
		e.mu.Lock()
		if e.record.ServersList != list {
			e.record.ServersList = list
			changed = true
		}
		e.mu.Unlock()
	}

	if changed {
		if err := m.saveAll(ctx); err != nil {
			m.logger.Error().Err(err).Msg("Could not persist refreshed requirement text")
		}
	}
}

// endFromScheduler ends a giveaway from tick context: failures are logged and
// skipped rather than surfaced, and a vanished announcement prunes the
// record.
func (m *Manager) endFromScheduler(ctx context.Context, e *Entity) {
	_, err := m.end(ctx, e)
	if err == nil {
		return
	}
	m.handleSchedulerError(ctx, e, err, "end")
}

func (m *Manager) handleSchedulerError(ctx context.Context, e *Entity, err error, operation string) {
	appErr, ok := apperrors.AsAppError(err)
	if ok {
		switch appErr.Code {
		case apperrors.ErrCodeAlreadyEnded:
			// Another tick won the race; nothing to do.
			return
		case apperrors.ErrCodeMessageNotFound:
			// The announcement is gone, the record serves no purpose.
			m.logger.Warn().
				Str("giveaway_id", e.ID()).
				Str("operation", operation).
				Msg("Announcement message deleted, pruning giveaway")
			m.remove(e)
			if saveErr := m.saveAll(ctx); saveErr != nil {
				m.logger.Error().Err(saveErr).Msg("Could not persist pruned giveaway")
			}
			return
		}
	}
	m.logger.Warn().
		Str("giveaway_id", e.ID()).
		Str("operation", operation).
		Err(err).
		Msg("Scheduler operation failed, will retry on a later tick")
}
