package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealdesk/dealdesk/internal/models"
	"github.com/dealdesk/dealdesk/internal/repository"
)

// Postgres unique_violation.
const uniqueViolationCode = "23505"

type DMThreadStore struct {
	pool *pgxpool.Pool
}

func NewDMThreadStore(pool *pgxpool.Pool) *DMThreadStore {
	return &DMThreadStore{pool: pool}
}

// Create inserts a thread for a canonically ordered pair. A unique violation
// on (user1_id, user2_id) surfaces as repository.ErrDuplicate: both ends of
// the pair messaged each other at once and the other insert won.
func (s *DMThreadStore) Create(ctx context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error) {
	query := `
		INSERT INTO dm_threads (id, user1_id, user2_id, created_at)
		VALUES (uuid_generate_v4(), $1, $2, now())
		RETURNING id, user1_id, user2_id, created_at`

	var t models.DMThread
	err := s.pool.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&t.ID,
		&t.User1ID,
		&t.User2ID,
		&t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert dm thread: %w", err)
	}
	return &t, nil
}

func (s *DMThreadStore) GetByPair(ctx context.Context, user1ID, user2ID uuid.UUID) (*models.DMThread, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM dm_threads
		WHERE user1_id = $1 AND user2_id = $2`

	var t models.DMThread
	err := s.pool.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&t.ID,
		&t.User1ID,
		&t.User2ID,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dm thread by pair: %w", err)
	}
	return &t, nil
}

func (s *DMThreadStore) GetByID(ctx context.Context, threadID uuid.UUID) (*models.DMThread, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM dm_threads
		WHERE id = $1`

	var t models.DMThread
	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&t.ID,
		&t.User1ID,
		&t.User2ID,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dm thread: %w", err)
	}
	return &t, nil
}

func (s *DMThreadStore) IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM dm_threads
			WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, threadID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return exists, nil
}
