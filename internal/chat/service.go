package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/hub"
	"github.com/dealdesk/dealdesk/internal/models"
	"github.com/dealdesk/dealdesk/internal/repository"
)

// PageSize is the fixed message page size.
const PageSize = 50

// PreviewLength caps the conversation-list preview.
const PreviewLength = 60

// Event names pushed through the realtime hub.
const (
	EventNewMessage         = "new_message"
	EventChannelRenamed     = "channel_renamed"
	EventConversationUpdate = "conversation_update"
)

// Publisher is the event-emission interface into the realtime hub. The hub
// satisfies it; tests substitute a recorder. Delivery is best-effort — a
// publish never fails the operation that triggered it.
type Publisher interface {
	PublishToRoom(roomID, event string, payload any)
	PublishToUser(userID uuid.UUID, event string, payload any)
}

// ConversationUpdate is the payload sent to each member's personal room so
// connected clients refresh their conversation list, whether or not they are
// subscribed to the conversation's own room.
type ConversationUpdate struct {
	ConversationKind models.ConversationKind `json:"conversation_kind"`
	ConversationID   uuid.UUID               `json:"conversation_id"`
	SenderID         uuid.UUID               `json:"sender_id"`
	Message          *models.Message         `json:"message"`
}

// ChannelRenamed is the payload for rename events.
type ChannelRenamed struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Name      string    `json:"name"`
}

// Service implements the messaging core: message validation and persistence,
// channel and DM lifecycle, membership-gated reads, and the conversation
// list projection. Every operation authorizes through the membership checks
// before touching a conversation.
type Service struct {
	users         repository.UserRepository
	channels      repository.ChannelRepository
	members       repository.MembershipRepository
	threads       repository.DMThreadRepository
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	events        Publisher
	logger        *zap.Logger
}

func NewService(
	users repository.UserRepository,
	channels repository.ChannelRepository,
	members repository.MembershipRepository,
	threads repository.DMThreadRepository,
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	events Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:         users,
		channels:      channels,
		members:       members,
		threads:       threads,
		messages:      messages,
		conversations: conversations,
		events:        events,
		logger:        logger,
	}
}

// ---------------------------------------------------------------
// Channel lifecycle
// ---------------------------------------------------------------

// CreateChannel persists a channel with its creator as the first admin
// member. The repository does both inserts in one transaction.
func (s *Service) CreateChannel(ctx context.Context, name string, chType models.ChannelType, creatorID uuid.UUID) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if chType == "" {
		chType = models.ChannelTypeGeneral
	}
	if !models.ValidChannelType(chType) {
		return nil, fmt.Errorf("unknown channel type %q", chType)
	}

	ch, err := s.channels.Create(ctx, name, chType, creatorID)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return ch, nil
}

// RenameChannel updates the channel name. Admin members only — a non-admin
// gets an explicit ErrNotAdmin, the same policy as RemoveMember. The rename
// leaves a system message in the timeline and pushes a channel_renamed event
// to the channel room and to every member's personal room.
func (s *Service) RenameChannel(ctx context.Context, channelID, actorID uuid.UUID, name string) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}

	isAdmin, err := s.members.IsAdmin(ctx, channelID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}

	ch, err = s.channels.Rename(ctx, channelID, name)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrNotFound
	}
	if _, err := s.SendSystemMessage(ctx, channelID, actorID, fmt.Sprintf("%s renamed the channel to %s", actor.DisplayName, name)); err != nil {
		return nil, err
	}

	renamed := ChannelRenamed{ChannelID: channelID, Name: name}
	s.events.PublishToRoom(hub.ChannelRoom(channelID), EventChannelRenamed, renamed)
	members, err := s.members.ListMembers(ctx, channelID)
	if err != nil {
		s.logger.Warn("rename fanout: list members", zap.Error(err))
		return ch, nil
	}
	for _, m := range members {
		s.events.PublishToUser(m.UserID, EventChannelRenamed, renamed)
	}
	return ch, nil
}

// AddMember adds a user to a channel. Any current member may add — adding is
// low-risk, unlike remove/rename which stay admin-gated. A successful add
// leaves a system message; adding an existing member is a silent no-op.
func (s *Service) AddMember(ctx context.Context, channelID, actorID, userID uuid.UUID) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrNotFound
	}

	isMember, err := s.members.IsMember(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	added, err := s.members.AddMember(ctx, channelID, userID, models.RoleMember)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return ErrNotFound
	}
	_, err = s.SendSystemMessage(ctx, channelID, actorID, fmt.Sprintf("%s added %s to the channel", actor.DisplayName, target.DisplayName))
	return err
}

// RemoveMember removes another user from a channel. Admins only, and never
// the actor themselves — self-removal is a different operation.
func (s *Service) RemoveMember(ctx context.Context, channelID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return ErrCannotRemoveSelf
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrNotFound
	}

	isAdmin, err := s.members.IsAdmin(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotAdmin
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}

	removed, err := s.members.RemoveMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return ErrNotFound
	}
	_, err = s.SendSystemMessage(ctx, channelID, actorID, fmt.Sprintf("%s removed %s from the channel", actor.DisplayName, target.DisplayName))
	return err
}

// ListMembers returns a channel's roster. Non-members get an empty slice,
// not an error — same existence-hiding policy as message reads.
func (s *Service) ListMembers(ctx context.Context, channelID, callerID uuid.UUID) ([]models.ChannelMember, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}

	isMember, err := s.members.IsMember(ctx, channelID, callerID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return []models.ChannelMember{}, nil
	}
	return s.members.ListMembers(ctx, channelID)
}

// ---------------------------------------------------------------
// DM lifecycle
// ---------------------------------------------------------------

// GetOrCreateDMThread returns the single thread for a user pair, creating it
// lazily on first contact. The pair is canonicalized before lookup, so both
// orderings resolve to the same row. Concurrent first contact from both ends
// is settled by the unique constraint: losing the insert race means the
// thread now exists — re-read and return it.
func (s *Service) GetOrCreateDMThread(ctx context.Context, userID, peerID uuid.UUID) (*models.DMThread, error) {
	if userID == peerID {
		return nil, ErrSelfDM
	}

	peer, err := s.users.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, ErrNotFound
	}

	u1, u2 := models.CanonicalPair(userID, peerID)

	thread, err := s.threads.GetByPair(ctx, u1, u2)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}

	thread, err = s.threads.Create(ctx, u1, u2)
	if errors.Is(err, repository.ErrDuplicate) {
		thread, err = s.threads.GetByPair(ctx, u1, u2)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			return nil, fmt.Errorf("dm thread vanished after duplicate insert")
		}
		return thread, nil
	}
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// ---------------------------------------------------------------
// Messages
// ---------------------------------------------------------------

// SendChannelMessage validates, persists, and fans out a user message.
// The returned message carries the sender's display fields for immediate
// echo. Rejected sends publish nothing.
func (s *Service) SendChannelMessage(ctx context.Context, channelID, senderID uuid.UUID, body string, imageURL *string) (*models.Message, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}

	isMember, err := s.members.IsMember(ctx, channelID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	msg, err := s.messages.CreateChannelMessage(ctx, channelID, senderID, models.MessageTypeUser, body, imageURL)
	if err != nil {
		return nil, err
	}

	s.fanoutChannelMessage(ctx, channelID, msg)
	return msg, nil
}

// SendDMMessage is the DM counterpart of SendChannelMessage.
func (s *Service) SendDMMessage(ctx context.Context, threadID, senderID uuid.UUID, body string, imageURL *string) (*models.Message, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrNotFound
	}
	ok, err := s.threads.IsParticipant(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	msg, err := s.messages.CreateDMMessage(ctx, threadID, senderID, body, imageURL)
	if err != nil {
		return nil, err
	}

	s.events.PublishToRoom(hub.DMRoom(threadID), EventNewMessage, msg)
	update := ConversationUpdate{
		ConversationKind: models.ConversationDM,
		ConversationID:   threadID,
		SenderID:         msg.SenderID,
		Message:          msg,
	}
	s.events.PublishToUser(thread.User1ID, EventConversationUpdate, update)
	s.events.PublishToUser(thread.User2ID, EventConversationUpdate, update)
	return msg, nil
}

// SendSystemMessage records a membership event in the channel timeline on
// behalf of an actor. The text is server-constructed, so the empty-body
// check for user input does not apply. Fanned out like any other message.
func (s *Service) SendSystemMessage(ctx context.Context, channelID, actorID uuid.UUID, text string) (*models.Message, error) {
	msg, err := s.messages.CreateChannelMessage(ctx, channelID, actorID, models.MessageTypeSystem, text, nil)
	if err != nil {
		return nil, err
	}

	s.fanoutChannelMessage(ctx, channelID, msg)
	return msg, nil
}

// fanoutChannelMessage delivers a stored message to the channel room for
// live-thread rendering, and separately to every member's personal room for
// conversation-list refresh. The second path is deliberately redundant: a
// member can be connected without being subscribed to this channel's room.
func (s *Service) fanoutChannelMessage(ctx context.Context, channelID uuid.UUID, msg *models.Message) {
	s.events.PublishToRoom(hub.ChannelRoom(channelID), EventNewMessage, msg)

	members, err := s.members.ListMembers(ctx, channelID)
	if err != nil {
		s.logger.Warn("message fanout: list members",
			zap.String("channel_id", channelID.String()),
			zap.Error(err),
		)
		return
	}

	update := ConversationUpdate{
		ConversationKind: models.ConversationChannel,
		ConversationID:   channelID,
		SenderID:         msg.SenderID,
		Message:          msg,
	}
	for _, m := range members {
		s.events.PublishToUser(m.UserID, EventConversationUpdate, update)
	}
}

// GetChannelMessages returns one page of a channel's timeline, oldest to
// newest. Non-members get an empty page rather than an error, so outsiders
// cannot distinguish "not a member" from "no messages". Pagination walks
// backward from now via the before cursor, while the returned page reads
// forward — hence fetch newest-first, then reverse.
func (s *Service) GetChannelMessages(ctx context.Context, channelID, userID uuid.UUID, before int64) ([]models.Message, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNotFound
	}

	isMember, err := s.members.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return []models.Message{}, nil
	}

	msgs, err := s.messages.ListChannelMessages(ctx, channelID, before, PageSize)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// GetDMMessages is the DM counterpart of GetChannelMessages: empty page for
// non-participants, same cursor and ordering contract.
func (s *Service) GetDMMessages(ctx context.Context, threadID, userID uuid.UUID, before int64) ([]models.Message, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrNotFound
	}
	ok, err := s.threads.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Message{}, nil
	}

	msgs, err := s.messages.ListDMMessages(ctx, threadID, before, PageSize)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// ---------------------------------------------------------------
// Conversation list
// ---------------------------------------------------------------

// ListConversations returns the user's inbox: channels and DM threads
// ordered by latest activity, previews truncated for list rendering.
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	summaries, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].LastMessagePreview = truncatePreview(summaries[i].LastMessagePreview)
	}
	return summaries, nil
}

func truncatePreview(body string) string {
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength])
}
