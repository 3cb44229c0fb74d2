package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/ulid"
)

// SafetyRepository records risk signals for later review.
type SafetyRepository interface {
	Create(ctx context.Context, event *models.SafetyEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.SafetyEvent, error)
}

type safetyRepo struct {
	pool *pgxpool.Pool
}

// NewSafetyRepository creates a new safety event repository.
func NewSafetyRepository(pool *pgxpool.Pool) SafetyRepository {
	return &safetyRepo{pool: pool}
}

// Create inserts a safety event, assigning a ULID when the id is empty.
func (r *safetyRepo) Create(ctx context.Context, event *models.SafetyEvent) error {
	query := `
		INSERT INTO safety_events (id, user_id, source, matched_phrase)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if event.ID == "" {
		event.ID = ulid.New()
	}

	return r.pool.QueryRow(ctx, query,
		event.ID,
		event.UserID,
		event.Source,
		event.MatchedPhrase,
	).Scan(&event.CreatedAt)
}

// ListByUser returns the most recent events for a user, newest first.
func (r *safetyRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.SafetyEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, source, matched_phrase, created_at
		FROM safety_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SafetyEvent
	for rows.Next() {
		var e models.SafetyEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.MatchedPhrase, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
