package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealdesk/dealdesk/internal/models"
)

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

// Create inserts the channel and the creator's admin membership in a single
// transaction. If either insert fails, neither lands — a channel never
// exists with zero members.
func (s *ChannelStore) Create(ctx context.Context, name string, chType models.ChannelType, creatorID uuid.UUID) (*models.Channel, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channels (id, name, type, created_by, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, now())
		RETURNING id, name, type, created_by, created_at`

	var ch models.Channel
	err = tx.QueryRow(ctx, query, name, chType, creatorID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Type,
		&ch.CreatedBy,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	memberQuery := `
		INSERT INTO channel_memberships (channel_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, now())`

	if _, err := tx.Exec(ctx, memberQuery, ch.ID, creatorID, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit channel create: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, name, type, created_by, created_at
		FROM channels
		WHERE id = $1`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Type,
		&ch.CreatedBy,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) Rename(ctx context.Context, channelID uuid.UUID, name string) (*models.Channel, error) {
	query := `
		UPDATE channels
		SET name = $2
		WHERE id = $1
		RETURNING id, name, type, created_by, created_at`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID, name).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Type,
		&ch.CreatedBy,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("rename channel: %w", err)
	}
	return &ch, nil
}
