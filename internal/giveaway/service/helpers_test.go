package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giveaway-engine/internal/common/clock"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/platform"
)

// fakeClient is an in-memory platform.Client for tests.
type fakeClient struct {
	mu sync.Mutex

	self     platform.User
	nextID   int
	messages map[string]*platform.Message   // by message ID
	reactors map[string][]platform.User     // by message ID
	members  map[string]*platform.Member    // by guildID:userID
	invites  map[string]string              // code -> guild name
	failing  map[string]error               // invite code -> error

	missingChannels map[string]bool

	sent    []sentMessage
	edits   []editRecord
	deleted []string
}

type sentMessage struct {
	channelID string
	content   string
	embed     *platform.Embed
}

type editRecord struct {
	messageID string
	content   string
	embed     *platform.Embed
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		self:            platform.User{ID: "bot-1", Username: "engine", Bot: true},
		messages:        make(map[string]*platform.Message),
		reactors:        make(map[string][]platform.User),
		members:         make(map[string]*platform.Member),
		invites:         make(map[string]string),
		failing:         make(map[string]error),
		missingChannels: make(map[string]bool),
	}
}

func (f *fakeClient) SendMessage(ctx context.Context, channelID, content string, embed *platform.Embed) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingChannels[channelID] {
		return nil, platform.ErrChannelNotFound
	}
	f.nextID++
	msg := &platform.Message{ID: fmt.Sprintf("msg-%d", f.nextID), ChannelID: channelID}
	f.messages[msg.ID] = msg
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content, embed: embed})
	return msg, nil
}

func (f *fakeClient) EditMessage(ctx context.Context, channelID, messageID, content string, embed *platform.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingChannels[channelID] {
		return platform.ErrChannelNotFound
	}
	if _, ok := f.messages[messageID]; !ok {
		return platform.ErrMessageNotFound
	}
	f.edits = append(f.edits, editRecord{messageID: messageID, content: content, embed: embed})
	return nil
}

func (f *fakeClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return platform.ErrMessageNotFound
	}
	delete(f.messages, messageID)
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeClient) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missingChannels[channelID] {
		return nil, platform.ErrChannelNotFound
	}
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, platform.ErrMessageNotFound
	}
	return msg, nil
}

func (f *fakeClient) MessageReactors(ctx context.Context, channelID, messageID, emoji string) ([]platform.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.User, len(f.reactors[messageID]))
	copy(out, f.reactors[messageID])
	return out, nil
}

func (f *fakeClient) FetchMember(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[guildID+":"+userID]
	if !ok {
		return nil, platform.ErrMemberNotFound
	}
	return member, nil
}

func (f *fakeClient) ResolveInvite(ctx context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[code]; ok {
		return "", err
	}
	name, ok := f.invites[code]
	if !ok {
		return "", platform.ErrInviteNotFound
	}
	return name, nil
}

func (f *fakeClient) Self(ctx context.Context) (platform.User, error) {
	return f.self, nil
}

// addReactor registers a reacting user and, when member is non-nil, a
// matching guild member. A nil member models a user who left after reacting.
func (f *fakeClient) addReactor(messageID, guildID string, user platform.User, member *platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactors[messageID] = append(f.reactors[messageID], user)
	if member != nil {
		f.members[guildID+":"+user.ID] = member
	}
}

func (f *fakeClient) removeMessage(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, messageID)
}

func (f *fakeClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeClient) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeClient) lastEdit() editRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

// memoryStore is an in-memory store.Store capturing every save.
type memoryStore struct {
	mu      sync.Mutex
	records []*models.Giveaway
	saves   int
	loadErr error
	saveErr error

	// saveGate, when set, blocks the next SaveAll until it closes;
	// saveEntered closes once that SaveAll has begun.
	saveGate    chan struct{}
	saveEntered chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]*models.Giveaway, 0, len(s.records))
	for _, r := range s.records {
		record := *r
		out = append(out, &record)
	}
	return out, nil
}

func (s *memoryStore) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	s.mu.Lock()
	gate, entered := s.saveGate, s.saveEntered
	s.saveGate, s.saveEntered = nil, nil
	s.mu.Unlock()
	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = make([]*models.Giveaway, 0, len(giveaways))
	for _, g := range giveaways {
		record := *g
		s.records = append(s.records, &record)
	}
	s.saves++
	return nil
}

// gateNextSave arms the gate so the next SaveAll blocks until gate closes.
func (s *memoryStore) gateNextSave() (gate, entered chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveGate = make(chan struct{})
	s.saveEntered = make(chan struct{})
	return s.saveGate, s.saveEntered
}

func (s *memoryStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memoryStore) stored() []*models.Giveaway {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Giveaway, 0, len(s.records))
	for _, r := range s.records {
		record := *r
		out = append(out, &record)
	}
	return out
}

// recordingObserver captures every outbound signal.
type recordingObserver struct {
	mu       sync.Mutex
	ended    [][]*platform.Member
	rerolled [][]*platform.Member
	added    []string
	removed  []string
}

func (o *recordingObserver) GiveawayEnded(g *models.Giveaway, winners []*platform.Member) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, winners)
}

func (o *recordingObserver) GiveawayRerolled(g *models.Giveaway, winners []*platform.Member) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rerolled = append(o.rerolled, winners)
}

func (o *recordingObserver) EntryAdded(g *models.Giveaway, userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, userID)
}

func (o *recordingObserver) EntryRemoved(g *models.Giveaway, userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed = append(o.removed, userID)
}

type testFixture struct {
	manager  *Manager
	client   *fakeClient
	store    *memoryStore
	observer *recordingObserver
	clock    *clock.FixedClock
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture() (*testFixture, error) {
	return newFixtureWith(nil)
}

func newFixtureWith(mutate func(*Config)) (*testFixture, error) {
	client := newFakeClient()
	st := newMemoryStore()
	observer := &recordingObserver{}
	clk := clock.NewFixed(testNow)

	cfg := &Config{
		Client:   client,
		Store:    st,
		Observer: observer,
		Clock:    clk,
		Defaults: models.Defaults{
			Reaction:      "🎉",
			EmbedColor:    "#FF0000",
			EmbedColorEnd: "#000000",
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	manager, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := manager.Hydrate(context.Background()); err != nil {
		return nil, err
	}

	return &testFixture{
		manager:  manager,
		client:   client,
		store:    st,
		observer: observer,
		clock:    clk,
	}, nil
}

func member(guildID, userID string, opts ...func(*platform.Member)) *platform.Member {
	m := &platform.Member{
		User:     platform.User{ID: userID, Username: "user-" + userID},
		GuildID:  guildID,
		JoinedAt: testNow.Add(-30 * 24 * time.Hour),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
