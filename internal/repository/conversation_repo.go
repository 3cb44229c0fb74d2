package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// ConversationRepository stores one history document per user.
type ConversationRepository interface {
	// Load returns an empty slice when the user has no history.
	Load(ctx context.Context, userID string) ([]models.Turn, error)
	// Save replaces the whole document.
	Save(ctx context.Context, userID string, turns []models.Turn) error
	Delete(ctx context.Context, userID string) error
}

type conversationRepo struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepo{pool: pool}
}

// Load retrieves the stored history, oldest turn first.
func (r *conversationRepo) Load(ctx context.Context, userID string) ([]models.Turn, error) {
	query := `SELECT history FROM chats WHERE user_id = $1`

	var turns []models.Turn
	err := r.pool.QueryRow(ctx, query, userID).Scan(&turns)
	if errors.Is(err, pgx.ErrNoRows) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return turns, nil
}

// Save writes the history document. Concurrent saves are last-write-wins.
func (r *conversationRepo) Save(ctx context.Context, userID string, turns []models.Turn) error {
	if turns == nil {
		turns = []models.Turn{}
	}

	query := `
		INSERT INTO chats (user_id, history, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			history = EXCLUDED.history,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, userID, turns)
	return err
}

// Delete removes the history document. Deleting a missing document is not an error.
func (r *conversationRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE user_id = $1`, userID)
	return err
}
