package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// DiaryRepository defines the interface for diary entry operations.
type DiaryRepository interface {
	// Upsert stores the entry for its date, replacing any earlier text.
	Upsert(ctx context.Context, userID string, entry *models.DiaryEntry) error
	// List returns all entries, newest first.
	List(ctx context.Context, userID string) ([]models.DiaryEntry, error)
	// ListSince returns entries dated on or after since, oldest first.
	ListSince(ctx context.Context, userID, since string) ([]models.DiaryEntry, error)
}

type diaryRepo struct {
	pool *pgxpool.Pool
}

// NewDiaryRepository creates a new diary repository.
func NewDiaryRepository(pool *pgxpool.Pool) DiaryRepository {
	return &diaryRepo{pool: pool}
}

// Upsert inserts or overwrites the entry keyed by (user, date).
func (r *diaryRepo) Upsert(ctx context.Context, userID string, entry *models.DiaryEntry) error {
	date, err := parseDate(entry.Date)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO diary_entries (user_id, entry_date, text, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			text = EXCLUDED.text,
			last_updated = NOW()
		RETURNING last_updated`

	return r.pool.QueryRow(ctx, query, userID, date, entry.Text).Scan(&entry.LastUpdated)
}

// List retrieves every diary entry for a user.
func (r *diaryRepo) List(ctx context.Context, userID string) ([]models.DiaryEntry, error) {
	query := `
		SELECT entry_date, text, last_updated
		FROM diary_entries
		WHERE user_id = $1
		ORDER BY entry_date DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListSince retrieves the entries used as chat context.
func (r *diaryRepo) ListSince(ctx context.Context, userID, since string) ([]models.DiaryEntry, error) {
	date, err := parseDate(since)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT entry_date, text, last_updated
		FROM diary_entries
		WHERE user_id = $1 AND entry_date >= $2
		ORDER BY entry_date ASC`

	rows, err := r.pool.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]models.DiaryEntry, error) {
	defer rows.Close()

	entries := []models.DiaryEntry{}
	for rows.Next() {
		var (
			e    models.DiaryEntry
			date time.Time
		)
		if err := rows.Scan(&date, &e.Text, &e.LastUpdated); err != nil {
			return nil, err
		}
		e.Date = date.Format(models.DiaryDateLayout)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DiaryDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid diary date %q: %w", s, err)
	}
	return t, nil
}
