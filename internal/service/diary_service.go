package service

import (
	"context"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/persona"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/sanitize"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
)

var (
	errDiaryRead  = apierrors.NewInternalError("Could not retrieve diary entries.")
	errDiaryWrite = apierrors.NewInternalError("Could not save diary entry.")
)

// DiaryService manages one diary entry per user per calendar day.
type DiaryService interface {
	// Save upserts today's entry.
	Save(ctx context.Context, userID string, req DiaryRequest) (*models.DiaryEntry, error)
	// List returns every entry, newest first.
	List(ctx context.Context, userID string) ([]models.DiaryEntry, error)
	// Recent returns the entries inside the chat context window, oldest first.
	Recent(ctx context.Context, userID string) ([]models.DiaryEntry, error)
}

// DiaryRequest is the body of POST /api/diary.
type DiaryRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

type diaryService struct {
	store *repository.Store
	now   func() time.Time
}

// NewDiaryService creates a new diary service.
func NewDiaryService(store *repository.Store) DiaryService {
	return &diaryService{store: store, now: time.Now}
}

func (s *diaryService) Save(ctx context.Context, userID string, req DiaryRequest) (*models.DiaryEntry, error) {
	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}

	entry := &models.DiaryEntry{
		Date: s.now().Format(models.DiaryDateLayout),
		Text: sanitize.Text(req.Text),
	}
	if err := s.store.Diary.Upsert(ctx, userID, entry); err != nil {
		return nil, storeError("save diary entry", err, errDiaryWrite)
	}
	return entry, nil
}

func (s *diaryService) List(ctx context.Context, userID string) ([]models.DiaryEntry, error) {
	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}

	entries, err := s.store.Diary.List(ctx, userID)
	if err != nil {
		return nil, storeError("list diary entries", err, errDiaryRead)
	}
	return entries, nil
}

func (s *diaryService) Recent(ctx context.Context, userID string) ([]models.DiaryEntry, error) {
	entries, err := s.store.Diary.ListSince(ctx, userID, persona.DiarySince(s.now()))
	if err != nil {
		return nil, storeError("list recent diary entries", err, errDiaryRead)
	}
	return entries, nil
}
