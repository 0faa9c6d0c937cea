package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"giveaway-engine/internal/common/clock"
	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/common/logger"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/giveaway/store"
	"giveaway-engine/internal/platform"
)

// Config carries the manager's collaborators and tuning.
type Config struct {
	Client   platform.Client
	Store    store.Store
	Renderer Renderer
	Observer Observer
	Clock    clock.Clock
	Defaults models.Defaults

	CountdownInterval   time.Duration
	RequirementInterval time.Duration
	FinalCountdownFrame time.Duration
}

// Manager owns the collection of live giveaways. It is the only public entry
// point for starting, editing, ending, rerolling and deleting giveaways, and
// it runs the scheduler that drives their state transitions.
type Manager struct {
	client   platform.Client
	store    store.Store
	renderer Renderer
	observer Observer
	clock    clock.Clock
	defaults models.Defaults
	logger   zerolog.Logger

	countdownInterval   time.Duration
	requirementInterval time.Duration
	finalCountdownFrame time.Duration

	resolver *RequirementResolver

	mu       sync.RWMutex
	entities map[string]*Entity // keyed by internal giveaway ID
	byMsg    map[string]string  // announcement message ID -> giveaway ID
	order    []string           // insertion order of giveaway IDs
	ready    bool
	self     platform.User

	// saveMu serializes saveAll's snapshot and store write as one unit, so a
	// snapshot taken before a concurrent mutation can never land after that
	// mutation's own write.
	saveMu sync.Mutex

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, apperrors.NewValidationError("config", "is required")
	}
	if cfg.Client == nil {
		return nil, apperrors.NewValidationError("client", "is required")
	}
	if cfg.Store == nil {
		return nil, apperrors.NewValidationError("store", "is required")
	}

	log := logger.Component("giveaway-manager")

	m := &Manager{
		client:              cfg.Client,
		store:               cfg.Store,
		renderer:            cfg.Renderer,
		observer:            cfg.Observer,
		clock:               cfg.Clock,
		defaults:            cfg.Defaults,
		logger:              log,
		countdownInterval:   cfg.CountdownInterval,
		requirementInterval: cfg.RequirementInterval,
		finalCountdownFrame: cfg.FinalCountdownFrame,
		entities:            make(map[string]*Entity),
		byMsg:               make(map[string]string),
	}
	if m.renderer == nil {
		m.renderer = NewTemplateRenderer()
	}
	if m.observer == nil {
		m.observer = NopObserver{}
	}
	if m.clock == nil {
		m.clock = &clock.DefaultClock{}
	}
	if m.countdownInterval <= 0 {
		m.countdownInterval = DefaultCountdownInterval
	}
	if m.requirementInterval <= 0 {
		m.requirementInterval = DefaultRequirementInterval
	}
	if m.finalCountdownFrame <= 0 {
		m.finalCountdownFrame = DefaultFinalCountdownFrame
	}
	m.resolver = NewRequirementResolver(cfg.Client, log)
	return m, nil
}

// Hydrate loads every persisted record into memory and marks the manager
// ready. It must complete before Run or any mutating operation.
func (m *Manager) Hydrate(ctx context.Context) error {
	records, err := m.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	self, err := m.client.Self(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Could not resolve own identity, self-reactions will not be excluded")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.self = self
	for _, record := range records {
		if record.Messages == nil {
			record.Messages = models.DefaultMessages()
		}
		e := newEntity(record)
		m.entities[record.ID] = e
		m.order = append(m.order, record.ID)
		if record.MessageID != "" {
			m.byMsg[record.MessageID] = record.ID
		}
	}
	m.ready = true

	m.logger.Info().Int("count", len(records)).Msg("Hydrated giveaways from store")
	return nil
}

func (m *Manager) isReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Start validates the options, posts the announcement and registers the new
// giveaway.
func (m *Manager) Start(ctx context.Context, channelID, guildID string, opts *models.StartOptions) (*Entity, error) {
	if !m.isReady() {
		return nil, apperrors.NewNotReadyError()
	}
	if channelID == "" {
		return nil, apperrors.NewValidationError("channel_id", "is required")
	}
	if opts == nil {
		return nil, apperrors.NewValidationError("options", "are required")
	}
	if opts.Duration <= 0 {
		return nil, apperrors.NewValidationError("duration", "must be a positive duration")
	}
	if opts.Prize == "" {
		return nil, apperrors.NewValidationError("prize", "must not be empty")
	}
	if opts.WinnerCount < 1 {
		return nil, apperrors.NewValidationError("winner_count", "must be a positive integer")
	}

	now := m.clock.Now()
	record := m.buildRecord(now, channelID, guildID, opts)

	state := &RenderState{
		TimeRemaining: timeRemainingText(opts.Duration),
		WinningChance: winningChance(record.WinnerCount, 0),
		Entries:       0,
	}
	content, embed := m.renderer.Announcement(record, state)
	msg, err := m.client.SendMessage(ctx, channelID, content, embed)
	if err != nil {
		return nil, apperrors.NewPlatformAPIError("send announcement", err)
	}
	record.MessageID = msg.ID

	e := newEntity(record)
	e.message = msg

	m.mu.Lock()
	m.entities[record.ID] = e
	m.order = append(m.order, record.ID)
	m.byMsg[record.MessageID] = record.ID
	m.mu.Unlock()

	if err := m.saveAll(ctx); err != nil {
		// Roll back so the failure leaves no unpersisted giveaway behind.
		m.remove(e)
		if delErr := m.client.DeleteMessage(ctx, channelID, record.MessageID); delErr != nil {
			m.logger.Debug().
				Str("giveaway_id", record.ID).
				Err(delErr).
				Msg("Could not delete announcement after failed save")
		}
		return nil, err
	}

	m.logger.Info().
		Str("giveaway_id", record.ID).
		Str("message_id", record.MessageID).
		Str("prize", record.Prize).
		Time("end_at", record.EndAt).
		Msg("Giveaway started")
	return e, nil
}

func (m *Manager) buildRecord(now time.Time, channelID, guildID string, opts *models.StartOptions) *models.Giveaway {
	record := &models.Giveaway{
		ID:                 uuid.New().String(),
		ChannelID:          channelID,
		GuildID:            guildID,
		StartAt:            now,
		EndAt:              now.Add(opts.Duration),
		WinnerCount:        opts.WinnerCount,
		Prize:              opts.Prize,
		HostedBy:           opts.HostedBy,
		Messages:           opts.Messages.WithDefaults(),
		Reaction:           opts.Reaction,
		BotsCanWin:         m.defaults.BotsCanWin,
		ExemptPermissions:  opts.ExemptPermissions,
		RoleRequirement:    opts.RoleRequirement,
		JoinedRequirement:  opts.JoinedRequirement,
		AgeRequirement:     opts.AgeRequirement,
		MessageRequirement: opts.MessageRequirement,
		ServerRequirement:  opts.ServerRequirement,
		BypassRoles:        opts.BypassRoles,
		IsDrop:             opts.IsDrop,
		EmbedColor:         opts.EmbedColor,
		EmbedColorEnd:      opts.EmbedColorEnd,
		WinnerRole:         opts.WinnerRole,
		ExemptMembers:      opts.ExemptMembers,
	}
	if record.Reaction == "" {
		record.Reaction = m.defaults.Reaction
	}
	if opts.BotsCanWin != nil {
		record.BotsCanWin = *opts.BotsCanWin
	}
	if record.EmbedColor == "" {
		record.EmbedColor = m.defaults.EmbedColor
	}
	if record.EmbedColorEnd == "" {
		record.EmbedColorEnd = m.defaults.EmbedColorEnd
	}
	return record
}

// End transitions the giveaway to its terminal state and returns the winners.
func (m *Manager) End(ctx context.Context, messageID string) ([]*platform.Member, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	return m.end(ctx, e)
}

// Reroll re-runs winner selection on an ended giveaway and announces the new
// winners. The terminal state is untouched.
func (m *Manager) Reroll(ctx context.Context, messageID string, opts *models.RerollOptions) ([]*platform.Member, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	return m.reroll(ctx, e, opts)
}

// Edit applies a partial mutation to a running giveaway.
func (m *Manager) Edit(ctx context.Context, messageID string, opts *models.EditOptions) (*Entity, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	if err := m.edit(ctx, e, opts); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes the giveaway from memory and storage. Unless keepMessage is
// set, the announcement is deleted best-effort.
func (m *Manager) Delete(ctx context.Context, messageID string, keepMessage bool) error {
	e, err := m.lookup(messageID)
	if err != nil {
		return err
	}
	record := e.Snapshot()

	m.remove(e)
	if err := m.saveAll(ctx); err != nil {
		return err
	}

	if !keepMessage {
		if err := m.client.DeleteMessage(ctx, record.ChannelID, record.MessageID); err != nil {
			// Best effort: a missing announcement is not an error here.
			m.logger.Debug().
				Str("giveaway_id", record.ID).
				Err(err).
				Msg("Could not delete announcement message")
		}
	}

	m.logger.Info().Str("giveaway_id", record.ID).Msg("Giveaway deleted")
	return nil
}

// Pause freezes a running giveaway's countdown.
func (m *Manager) Pause(ctx context.Context, messageID string, unpauseAfter time.Time) (*Entity, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	if err := m.pause(ctx, e, unpauseAfter); err != nil {
		return nil, err
	}
	return e, nil
}

// Unpause resumes a paused giveaway, restoring its frozen countdown.
func (m *Manager) Unpause(ctx context.Context, messageID string) (*Entity, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return nil, err
	}
	if err := m.unpause(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ValidEntryCount counts every non-self reactor, before the eligibility
// filters.
func (m *Manager) ValidEntryCount(ctx context.Context, messageID string) (int, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return 0, err
	}
	record := e.Snapshot()
	users, err := m.entrants(ctx, &record)
	if err != nil {
		return 0, apperrors.NewPlatformAPIError("list reactors", err)
	}
	return len(users), nil
}

// WinningChance formats the odds of winning against the post-filter eligible
// set, the same set selection draws from.
func (m *Manager) WinningChance(ctx context.Context, messageID string) (string, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return "", err
	}
	record := e.Snapshot()
	eligible, err := m.eligibleMembers(ctx, &record)
	if err != nil {
		return "", apperrors.NewPlatformAPIError("resolve eligible members", err)
	}
	return winningChance(record.WinnerCount, len(eligible)), nil
}

// TimeRemainingText renders the countdown left as display text.
func (m *Manager) TimeRemainingText(messageID string) (string, error) {
	e, err := m.lookup(messageID)
	if err != nil {
		return "", err
	}
	return timeRemainingText(e.RemainingTime(m.clock.Now())), nil
}

// Get returns the live entity for the given announcement message.
func (m *Manager) Get(messageID string) (*Entity, error) {
	return m.lookup(messageID)
}

// List returns a snapshot of every live giveaway in insertion order.
func (m *Manager) List() []models.Giveaway {
	m.mu.RLock()
	entities := make([]*Entity, 0, len(m.order))
	for _, id := range m.order {
		entities = append(entities, m.entities[id])
	}
	m.mu.RUnlock()

	out := make([]models.Giveaway, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Snapshot())
	}
	return out
}

// HandleReactionAdd processes an inbound reaction-add notification. It only
// raises the entry signal; no state is mutated, except that drop giveaways
// end as soon as they have enough entries.
func (m *Manager) HandleReactionAdd(ctx context.Context, event ReactionEvent) {
	e, err := m.lookup(event.MessageID)
	if err != nil {
		return
	}
	record := e.Snapshot()
	if record.Ended || event.Emoji != record.Reaction {
		return
	}
	if m.self.ID != "" && event.UserID == m.self.ID {
		return
	}

	m.observer.EntryAdded(&record, event.UserID)

	if record.IsDrop {
		m.checkDrop(ctx, e, &record)
	}
}

// HandleReactionRemove processes an inbound reaction-remove notification.
func (m *Manager) HandleReactionRemove(ctx context.Context, event ReactionEvent) {
	e, err := m.lookup(event.MessageID)
	if err != nil {
		return
	}
	record := e.Snapshot()
	if record.Ended || event.Emoji != record.Reaction {
		return
	}
	if m.self.ID != "" && event.UserID == m.self.ID {
		return
	}

	m.observer.EntryRemoved(&record, event.UserID)
}

// checkDrop ends a drop giveaway once it has collected enough entries.
func (m *Manager) checkDrop(ctx context.Context, e *Entity, record *models.Giveaway) {
	users, err := m.entrants(ctx, record)
	if err != nil {
		m.logger.Warn().Str("giveaway_id", record.ID).Err(err).Msg("Could not count drop entries")
		return
	}
	if len(users) >= record.WinnerCount {
		m.endFromScheduler(ctx, e)
	}
}

func (m *Manager) lookup(messageID string) (*Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready {
		return nil, apperrors.NewNotReadyError()
	}
	id, ok := m.byMsg[messageID]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(messageID)
	}
	return m.entities[id], nil
}

// remove unlinks the entity from the collection.
func (m *Manager) remove(e *Entity) {
	record := e.Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, record.ID)
	delete(m.byMsg, record.MessageID)
	for i, id := range m.order {
		if id == record.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// saveAll rewrites the whole store document from live snapshots. Callers must
// not hold any entity lock.
func (m *Manager) saveAll(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.RLock()
	entities := make([]*Entity, 0, len(m.order))
	for _, id := range m.order {
		entities = append(entities, m.entities[id])
	}
	m.mu.RUnlock()

	records := make([]*models.Giveaway, 0, len(entities))
	for _, e := range entities {
		record := e.Snapshot()
		records = append(records, &record)
	}
	return m.store.SaveAll(ctx, records)
}

// snapshotEntities returns the current entity list for a scheduler sweep.
func (m *Manager) snapshotEntities() []*Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Entity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entities[id])
	}
	return out
}
