package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealdesk/dealdesk/internal/models"
)

// ConversationStore computes the inbox projection in one query: the user's
// channels and DM threads, each joined laterally with its newest message.
// Pure read side — nothing is cached, so it always reflects the store as of
// the query.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

func (s *ConversationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	// Channels display their own name; DM threads display the other
	// participant's name. NULLS LAST pushes conversations that have never
	// received a message after every conversation that has.
	query := `
		SELECT conv.kind, conv.id, conv.display_name, conv.created_at,
		       conv.last_at, conv.last_body, conv.last_sender
		FROM (
			SELECT 'channel' AS kind, c.id, c.name AS display_name, c.created_at,
			       lm.created_at AS last_at, lm.body AS last_body, lm.sender_id AS last_sender
			FROM channel_memberships cm
			JOIN channels c ON c.id = cm.channel_id
			LEFT JOIN LATERAL (
				SELECT m.created_at, m.body, m.sender_id
				FROM messages m
				WHERE m.channel_id = c.id
				ORDER BY m.created_at DESC, m.id DESC
				LIMIT 1
			) lm ON true
			WHERE cm.user_id = $1

			UNION ALL

			SELECT 'dm', t.id, u.display_name, t.created_at,
			       lm.created_at, lm.body, lm.sender_id
			FROM dm_threads t
			JOIN users u ON u.id = CASE WHEN t.user1_id = $1 THEN t.user2_id ELSE t.user1_id END
			LEFT JOIN LATERAL (
				SELECT m.created_at, m.body, m.sender_id
				FROM messages m
				WHERE m.dm_thread_id = t.id
				ORDER BY m.created_at DESC, m.id DESC
				LIMIT 1
			) lm ON true
			WHERE t.user1_id = $1 OR t.user2_id = $1
		) conv
		ORDER BY conv.last_at DESC NULLS LAST, conv.created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var cs models.ConversationSummary
		var lastBody *string
		if err := rows.Scan(
			&cs.Kind,
			&cs.ID,
			&cs.DisplayName,
			&cs.CreatedAt,
			&cs.LastMessageAt,
			&lastBody,
			&cs.LastMessageSenderID,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if lastBody != nil {
			cs.LastMessagePreview = *lastBody
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return summaries, nil
}
