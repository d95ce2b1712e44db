package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealdesk/dealdesk/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Inserts use a CTE so the new row comes back already joined with the
// sender's display fields — the caller can echo the message to clients
// without a second round trip. created_at is server-assigned at insert time,
// which is what makes commit order the ordering authority.

func (s *MessageStore) CreateChannelMessage(ctx context.Context, channelID, senderID uuid.UUID, msgType models.MessageType, body string, imageURL *string) (*models.Message, error) {
	query := `
		WITH ins AS (
			INSERT INTO messages (channel_id, sender_id, type, body, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, sender_id, type, body, image_url, created_at
		)
		SELECT ins.id, ins.sender_id, u.display_name, u.email, ins.type, ins.body, ins.image_url, ins.created_at
		FROM ins
		JOIN users u ON u.id = ins.sender_id`

	msg := models.Message{Conversation: models.ChannelRef(channelID)}
	err := s.pool.QueryRow(ctx, query, channelID, senderID, msgType, body, imageURL).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.SenderEmail,
		&msg.Type,
		&msg.Body,
		&msg.ImageURL,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) CreateDMMessage(ctx context.Context, threadID, senderID uuid.UUID, body string, imageURL *string) (*models.Message, error) {
	query := `
		WITH ins AS (
			INSERT INTO messages (dm_thread_id, sender_id, type, body, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, sender_id, type, body, image_url, created_at
		)
		SELECT ins.id, ins.sender_id, u.display_name, u.email, ins.type, ins.body, ins.image_url, ins.created_at
		FROM ins
		JOIN users u ON u.id = ins.sender_id`

	msg := models.Message{Conversation: models.DMRef(threadID)}
	err := s.pool.QueryRow(ctx, query, threadID, senderID, models.MessageTypeUser, body, imageURL).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.SenderEmail,
		&msg.Type,
		&msg.Body,
		&msg.ImageURL,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dm message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) ListChannelMessages(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	rows, err := s.listMessages(ctx, "channel_id", channelID, before, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows, models.ChannelRef(channelID))
}

func (s *MessageStore) ListDMMessages(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	rows, err := s.listMessages(ctx, "dm_thread_id", threadID, before, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows, models.DMRef(threadID))
}

// listMessages pages backward from "now": newest page first, strictly older
// than the cursor message. The cursor is a message id; its (created_at, id)
// pair anchors the comparison so ties on created_at break by insertion
// order. before=0 means the latest page.
func (s *MessageStore) listMessages(ctx context.Context, convColumn string, convID uuid.UUID, before int64, limit int) (pgx.Rows, error) {
	var query string
	var args []any

	if before > 0 {
		query = fmt.Sprintf(`
			SELECT m.id, m.sender_id, u.display_name, u.email, m.type, m.body, m.image_url, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.%s = $1
			  AND (m.created_at, m.id) < (
				SELECT c.created_at, c.id FROM messages c WHERE c.id = $2
			  )
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $3`, convColumn)
		args = []any{convID, before, limit}
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.sender_id, u.display_name, u.email, m.type, m.body, m.image_url, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.%s = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2`, convColumn)
		args = []any{convID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}

func scanMessages(rows pgx.Rows, ref models.ConversationRef) ([]models.Message, error) {
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg := models.Message{Conversation: ref}
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderEmail,
			&msg.Type,
			&msg.Body,
			&msg.ImageURL,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
