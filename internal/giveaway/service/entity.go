package service

import (
	"sync"
	"time"

	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// Entity is one live giveaway: the persisted record plus transient state that
// never reaches storage. All mutation of the record goes through the entity
// mutex, so the Active to Ended transition happens exactly once even when two
// scheduler ticks observe expiry at the same moment.
type Entity struct {
	mu     sync.Mutex
	record *models.Giveaway

	// message is the cached handle of the fetched announcement.
	message *platform.Message

	// nearingEnd and finalCountdownStarted mark entry into the final-seconds
	// phase so the animation is never triggered twice and the refresh tick
	// leaves the entity alone once the animation owns it.
	nearingEnd            bool
	finalCountdownStarted bool

	// expiryArmed marks that a one-shot timer is already set to end the
	// giveaway at its exact deadline.
	expiryArmed bool
}

func newEntity(record *models.Giveaway) *Entity {
	return &Entity{record: record}
}

// ID returns the giveaway's stable internal identifier.
func (e *Entity) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.ID
}

// MessageID returns the announcement message identifier.
func (e *Entity) MessageID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.MessageID
}

// Snapshot returns a copy of the current record.
func (e *Entity) Snapshot() models.Giveaway {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Entity) snapshotLocked() models.Giveaway {
	return *e.record
}

// Ended reports whether the giveaway has reached its terminal state.
func (e *Entity) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Ended
}

// RemainingTime returns the countdown left at the given instant.
func (e *Entity) RemainingTime(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.RemainingTime(now)
}

// inFinalCountdown reports whether the ending animation owns this entity.
func (e *Entity) inFinalCountdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalCountdownStarted
}

// claimFinalCountdown atomically claims the entity for the ending animation.
// It succeeds only once, and only while the giveaway is still running with a
// positive countdown under the threshold.
func (e *Entity) claimFinalCountdown(now time.Time, threshold time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Ended || e.record.Pause.IsPaused || e.finalCountdownStarted {
		return false
	}
	remaining := e.record.RemainingTime(now)
	if remaining <= 0 || remaining >= threshold {
		return false
	}
	e.nearingEnd = true
	e.finalCountdownStarted = true
	return true
}

// armExpiry marks that a one-shot expiry timer exists. Returns false if one is
// already armed.
func (e *Entity) armExpiry() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expiryArmed || e.record.Ended {
		return false
	}
	e.expiryArmed = true
	return true
}
