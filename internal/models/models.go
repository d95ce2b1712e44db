package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a sales-team member. Accounts are created and authenticated by an
// external identity service; the core only references users by id and reads
// their display fields.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChannelType is informational only — no behavior branches on it.
type ChannelType string

const (
	ChannelTypeProducerGroup ChannelType = "producer_group"
	ChannelTypeAccountGroup  ChannelType = "account_group"
	ChannelTypeShippingGroup ChannelType = "shipping_group"
	ChannelTypeGeneral       ChannelType = "general"
)

// ValidChannelType reports whether t is one of the known channel types.
func ValidChannelType(t ChannelType) bool {
	switch t {
	case ChannelTypeProducerGroup, ChannelTypeAccountGroup, ChannelTypeShippingGroup, ChannelTypeGeneral:
		return true
	}
	return false
}

// Channel is a named group conversation. Channels are never deleted; the
// name is the only mutable field.
type Channel struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	CreatedBy uuid.UUID   `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Membership roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// ChannelMember is one row of the channel membership table. The creator is
// inserted as the first admin atomically with the channel itself.
type ChannelMember struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// DMThread is a 1:1 conversation. The participant pair is stored in
// canonical order (User1ID < User2ID) and is unique, so a pair can never
// have two threads.
type DMThread struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OtherParticipant returns the participant that is not userID.
func (t *DMThread) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if t.User1ID == userID {
		return t.User2ID
	}
	return t.User1ID
}

// CanonicalPair orders two user ids so (a,b) and (b,a) key the same thread.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

// MessageType distinguishes user-authored messages from platform-authored
// membership audit messages. Both live in the same timeline.
type MessageType string

const (
	MessageTypeUser   MessageType = "message"
	MessageTypeSystem MessageType = "system"
)

// ConversationKind tags a conversation reference.
type ConversationKind string

const (
	ConversationChannel ConversationKind = "channel"
	ConversationDM      ConversationKind = "dm"
)

// ConversationRef identifies the single conversation a message belongs to.
// A message references exactly one channel or one DM thread, never both;
// the tag makes that mutual exclusivity structural instead of two nullable
// foreign keys.
type ConversationRef struct {
	Kind ConversationKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

// ChannelRef builds a reference to a channel conversation.
func ChannelRef(id uuid.UUID) ConversationRef {
	return ConversationRef{Kind: ConversationChannel, ID: id}
}

// DMRef builds a reference to a DM thread conversation.
func DMRef(id uuid.UUID) ConversationRef {
	return ConversationRef{Kind: ConversationDM, ID: id}
}

// Message is a single immutable timeline entry. Sender display fields are
// denormalized onto the struct so a freshly sent message can be echoed to
// clients without a second round trip.
//
// Messages use bigserial ids: the highest-volume table gets the smallest,
// naturally ordered key, which also serves as the pagination cursor anchor.
type Message struct {
	ID           int64           `json:"id"`
	Conversation ConversationRef `json:"conversation"`
	SenderID     uuid.UUID       `json:"sender_id"`
	SenderName   string          `json:"sender_name"`
	SenderEmail  string          `json:"sender_email"`
	Type         MessageType     `json:"type"`
	Body         string          `json:"body"`
	ImageURL     *string         `json:"image_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ConversationSummary is one row of a user's inbox: a channel or DM thread
// with its most recent message, if any.
type ConversationSummary struct {
	Kind                ConversationKind `json:"kind"`
	ID                  uuid.UUID        `json:"id"`
	DisplayName         string           `json:"display_name"`
	CreatedAt           time.Time        `json:"created_at"`
	LastMessageAt       *time.Time       `json:"last_message_at,omitempty"`
	LastMessagePreview  string           `json:"last_message_preview,omitempty"`
	LastMessageSenderID *uuid.UUID       `json:"last_message_sender_id,omitempty"`
}
