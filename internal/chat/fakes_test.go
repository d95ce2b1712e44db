package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/internal/hub"
	"github.com/dealdesk/dealdesk/internal/models"
	"github.com/dealdesk/dealdesk/internal/repository"
)

// fakeStore is an in-memory stand-in for every repository interface. It
// mirrors the schema invariants the real store enforces: unique canonical
// DM pairs, unique memberships, server-assigned strictly increasing
// message timestamps.
type fakeStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]*models.User
	channels map[uuid.UUID]*models.Channel
	members  map[uuid.UUID][]models.ChannelMember
	threads  map[uuid.UUID]*models.DMThread
	messages []models.Message

	nextMsgID int64
	base      time.Time

	// failNextThreadCreate simulates losing the concurrent first-contact
	// race: the next insert hits the unique constraint.
	failNextThreadCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*models.User),
		channels: make(map[uuid.UUID]*models.Channel),
		members:  make(map[uuid.UUID][]models.ChannelMember),
		threads:  make(map[uuid.UUID]*models.DMThread),
		base:     time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) addUser(name, email string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = &models.User{
		ID:          id,
		Email:       email,
		DisplayName: name,
		Role:        "rep",
		CreatedAt:   f.base,
	}
	return id
}

func (f *fakeStore) tick() time.Time {
	f.nextMsgID++
	return f.base.Add(time.Duration(f.nextMsgID) * time.Millisecond)
}

// --- UserRepository ---

func (f *fakeStore) GetByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

// --- ChannelRepository ---

func (f *fakeStore) Create(_ context.Context, name string, chType models.ChannelType, creatorID uuid.UUID) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &models.Channel{
		ID:        uuid.New(),
		Name:      name,
		Type:      chType,
		CreatedBy: creatorID,
		CreatedAt: f.tick(),
	}
	f.channels[ch.ID] = ch
	f.members[ch.ID] = []models.ChannelMember{{
		ChannelID: ch.ID,
		UserID:    creatorID,
		Role:      models.RoleAdmin,
		JoinedAt:  ch.CreatedAt,
	}}
	return ch, nil
}

func (f *fakeStore) channelByID(_ context.Context, channelID uuid.UUID) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID], nil
}

func (f *fakeStore) Rename(_ context.Context, channelID uuid.UUID, name string) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := f.channels[channelID]
	if ch == nil {
		return nil, nil
	}
	ch.Name = name
	out := *ch
	return &out, nil
}

// --- MembershipRepository ---

func (f *fakeStore) AddMember(_ context.Context, channelID, userID uuid.UUID, role string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[channelID] {
		if m.UserID == userID {
			return false, nil
		}
	}
	f.members[channelID] = append(f.members[channelID], models.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  f.tick(),
	})
	return true, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.members[channelID]
	for i, m := range members {
		if m.UserID == userID {
			f.members[channelID] = append(members[:i:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListMembers(_ context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChannelMember, len(f.members[channelID]))
	copy(out, f.members[channelID])
	return out, nil
}

func (f *fakeStore) IsMember(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[channelID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) IsAdmin(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[channelID] {
		if m.UserID == userID && m.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// --- DMThreadRepository ---

func (f *fakeStore) CreateThread(_ context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextThreadCreate {
		f.failNextThreadCreate = false
		f.insertThreadLocked(user1ID, user2ID)
		return nil, repository.ErrDuplicate
	}
	for _, t := range f.threads {
		if t.User1ID == user1ID && t.User2ID == user2ID {
			return nil, repository.ErrDuplicate
		}
	}
	return f.insertThreadLocked(user1ID, user2ID), nil
}

func (f *fakeStore) insertThreadLocked(user1ID, user2ID uuid.UUID) *models.DMThread {
	t := &models.DMThread{
		ID:        uuid.New(),
		User1ID:   user1ID,
		User2ID:   user2ID,
		CreatedAt: f.tick(),
	}
	f.threads[t.ID] = t
	return t
}

func (f *fakeStore) GetByPair(_ context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.threads {
		if t.User1ID == user1ID && t.User2ID == user2ID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) threadByID(_ context.Context, threadID uuid.UUID) (*models.DMThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads[threadID], nil
}

func (f *fakeStore) IsParticipant(_ context.Context, threadID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.threads[threadID]
	if t == nil {
		return false, nil
	}
	return t.User1ID == userID || t.User2ID == userID, nil
}

// --- MessageRepository ---

func (f *fakeStore) CreateChannelMessage(_ context.Context, channelID, senderID uuid.UUID, msgType models.MessageType, body string, imageURL *string) (*models.Message, error) {
	return f.insertMessage(models.ChannelRef(channelID), senderID, msgType, body, imageURL)
}

func (f *fakeStore) CreateDMMessage(_ context.Context, threadID, senderID uuid.UUID, body string, imageURL *string) (*models.Message, error) {
	return f.insertMessage(models.DMRef(threadID), senderID, models.MessageTypeUser, body, imageURL)
}

func (f *fakeStore) insertMessage(ref models.ConversationRef, senderID uuid.UUID, msgType models.MessageType, body string, imageURL *string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sender := f.users[senderID]
	createdAt := f.tick()
	msg := models.Message{
		ID:           f.nextMsgID,
		Conversation: ref,
		SenderID:     senderID,
		SenderName:   sender.DisplayName,
		SenderEmail:  sender.Email,
		Type:         msgType,
		Body:         body,
		ImageURL:     imageURL,
		CreatedAt:    createdAt,
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeStore) ListChannelMessages(_ context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	return f.listMessages(models.ChannelRef(channelID), before, limit), nil
}

func (f *fakeStore) ListDMMessages(_ context.Context, threadID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	return f.listMessages(models.DMRef(threadID), before, limit), nil
}

// listMessages replays the store's cursor contract: newest first, strictly
// older than the cursor message, up to limit.
func (f *fakeStore) listMessages(ref models.ConversationRef, before int64, limit int) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Message, 0)
	// f.messages is in insertion (and so timestamp) order; walk backward.
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := f.messages[i]
		if m.Conversation != ref {
			continue
		}
		if before > 0 && m.ID >= before {
			continue
		}
		out = append(out, m)
	}
	return out
}

// messageCount reports how many messages a conversation holds, for
// asserting that rejected sends insert nothing.
func (f *fakeStore) messageCount(ref models.ConversationRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.Conversation == ref {
			n++
		}
	}
	return n
}

// --- ConversationRepository ---

func (f *fakeStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.ConversationSummary, 0)
	for _, ch := range f.channels {
		if !f.isMemberLocked(ch.ID, userID) {
			continue
		}
		cs := models.ConversationSummary{
			Kind:        models.ConversationChannel,
			ID:          ch.ID,
			DisplayName: ch.Name,
			CreatedAt:   ch.CreatedAt,
		}
		f.fillLastMessageLocked(&cs, models.ChannelRef(ch.ID))
		out = append(out, cs)
	}
	for _, t := range f.threads {
		if t.User1ID != userID && t.User2ID != userID {
			continue
		}
		cs := models.ConversationSummary{
			Kind:        models.ConversationDM,
			ID:          t.ID,
			DisplayName: f.users[t.OtherParticipant(userID)].DisplayName,
			CreatedAt:   t.CreatedAt,
		}
		f.fillLastMessageLocked(&cs, models.DMRef(t.ID))
		out = append(out, cs)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			return a.LastMessageAt.After(*b.LastMessageAt)
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
	return out, nil
}

func (f *fakeStore) isMemberLocked(channelID, userID uuid.UUID) bool {
	for _, m := range f.members[channelID] {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (f *fakeStore) fillLastMessageLocked(cs *models.ConversationSummary, ref models.ConversationRef) {
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.Conversation == ref {
			at := m.CreatedAt
			sender := m.SenderID
			cs.LastMessageAt = &at
			cs.LastMessagePreview = m.Body
			cs.LastMessageSenderID = &sender
			return
		}
	}
}

// threadRepo adapts fakeStore to DMThreadRepository (Create and GetByID
// collide with the channel methods by name).
type threadRepo struct{ *fakeStore }

func (r threadRepo) Create(ctx context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error) {
	return r.CreateThread(ctx, user1ID, user2ID)
}

func (r threadRepo) GetByID(ctx context.Context, threadID uuid.UUID) (*models.DMThread, error) {
	return r.threadByID(ctx, threadID)
}

// channelRepo adapts fakeStore to ChannelRepository.
type channelRepo struct{ *fakeStore }

func (r channelRepo) GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	return r.channelByID(ctx, channelID)
}

// fakePublisher records everything the service publishes.
type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishToRoom(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Room: roomID, Event: event, Payload: payload})
}

func (p *fakePublisher) PublishToUser(userID uuid.UUID, event string, payload any) {
	p.PublishToRoom(hub.UserRoom(userID), event, payload)
}

func (p *fakePublisher) eventsFor(roomID string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, 0)
	for _, e := range p.events {
		if e.Room == roomID {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
