package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/internal/models"
)

// ErrDuplicate is returned by Create methods when a uniqueness constraint
// fires. For DM threads this is the race-safety signal: losing the
// create race means someone else made the thread first — re-read and return
// theirs instead of failing.
var ErrDuplicate = errors.New("duplicate row")

// UserRepository reads externally-owned user records.
type UserRepository interface {
	// GetByID returns a user. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// ChannelRepository handles channel rows.
type ChannelRepository interface {
	// Create inserts a channel and its creator's admin membership in one
	// transaction. A channel must never exist with zero members.
	Create(ctx context.Context, name string, chType models.ChannelType, creatorID uuid.UUID) (*models.Channel, error)

	// GetByID returns a channel. Returns nil, nil if not found.
	GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error)

	// Rename updates the channel name and returns the updated row.
	Rename(ctx context.Context, channelID uuid.UUID, name string) (*models.Channel, error)
}

// MembershipRepository is the membership authority for channels: who is in
// one, and who administers it. Its checks gate every channel operation.
type MembershipRepository interface {
	// AddMember inserts a membership row. Reports false if the user was
	// already a member (the insert is idempotent).
	AddMember(ctx context.Context, channelID, userID uuid.UUID, role string) (bool, error)

	// RemoveMember deletes a membership row. Reports false if the user was
	// not a member.
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)

	// ListMembers returns all members of a channel.
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error)

	// IsMember is the hot-path gate checked before every channel read/send.
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)

	// IsAdmin gates rename and remove-member.
	IsAdmin(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
}

// DMThreadRepository handles 1:1 threads keyed by the canonical user pair.
type DMThreadRepository interface {
	// Create inserts a thread for a canonically ordered pair. Returns
	// ErrDuplicate if the pair already has a thread.
	Create(ctx context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error)

	// GetByPair looks up the thread for a canonically ordered pair.
	// Returns nil, nil on miss.
	GetByPair(ctx context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error)

	// GetByID returns a thread. Returns nil, nil if not found.
	GetByID(ctx context.Context, threadID uuid.UUID) (*models.DMThread, error)

	// IsParticipant reports whether userID is one of the thread's two users.
	IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error)
}

// MessageRepository persists and pages the append-only message timeline.
// Created messages come back joined with the sender's display fields.
type MessageRepository interface {
	CreateChannelMessage(ctx context.Context, channelID, senderID uuid.UUID, msgType models.MessageType, body string, imageURL *string) (*models.Message, error)

	CreateDMMessage(ctx context.Context, threadID, senderID uuid.UUID, body string, imageURL *string) (*models.Message, error)

	// ListChannelMessages returns up to limit messages strictly older than
	// the message identified by before (0 = from the newest), newest first.
	ListChannelMessages(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error)

	// ListDMMessages has the same cursor contract for a DM thread.
	ListDMMessages(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.Message, error)
}

// ConversationRepository computes the read-side inbox projection: every
// channel and DM thread a user belongs to, with its latest message.
type ConversationRepository interface {
	// ListForUser returns the user's conversations ordered by last message
	// time descending, message-less conversations after all others by
	// creation time descending. Previews carry the full latest body; the
	// caller truncates for display.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
}
