package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// UserRepository defines the interface for user profile operations.
type UserRepository interface {
	// Get returns nil, nil when the user has no profile.
	Get(ctx context.Context, id string) (*models.User, error)
	// Upsert creates the profile or resets it to the registration state.
	Upsert(ctx context.Context, user *models.User) error
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	UpdateConsent(ctx context.Context, id string, processing, analytics bool) error
	// SaveAssessment replaces the assessment and marks onboarding complete.
	SaveAssessment(ctx context.Context, id string, assessment *models.Assessment) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

// Get retrieves a user profile by identity id.
func (r *userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, username, display_name, preferred_assistant, consent_processing,
		       consent_analytics, onboarding_complete, assessment, created_at, updated_at
		FROM users WHERE id = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.DisplayName,
		&user.PreferredAssistant,
		&user.ConsentProcessing,
		&user.ConsentAnalytics,
		&user.OnboardingComplete,
		&user.Assessment,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert writes the registration fields. An existing assessment and created_at are kept.
func (r *userRepo) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, display_name, preferred_assistant,
		                   consent_processing, consent_analytics, onboarding_complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			preferred_assistant = EXCLUDED.preferred_assistant,
			consent_processing = EXCLUDED.consent_processing,
			consent_analytics = EXCLUDED.consent_analytics,
			onboarding_complete = EXCLUDED.onboarding_complete,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.DisplayName,
		user.PreferredAssistant,
		user.ConsentProcessing,
		user.ConsentAnalytics,
		user.OnboardingComplete,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

// UpdateDisplayName sets the name the assistant uses.
func (r *userRepo) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	query := `UPDATE users SET display_name = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, displayName)
}

// UpdateConsent stores both consent flags.
func (r *userRepo) UpdateConsent(ctx context.Context, id string, processing, analytics bool) error {
	query := `
		UPDATE users SET consent_processing = $2, consent_analytics = $3, updated_at = NOW()
		WHERE id = $1`
	return r.exec(ctx, query, id, processing, analytics)
}

// SaveAssessment overwrites the stored assessment.
func (r *userRepo) SaveAssessment(ctx context.Context, id string, assessment *models.Assessment) error {
	query := `
		UPDATE users SET assessment = $2, onboarding_complete = TRUE, updated_at = NOW()
		WHERE id = $1`
	return r.exec(ctx, query, id, assessment)
}

func (r *userRepo) exec(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
