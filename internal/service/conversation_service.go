package service

import (
	"context"
	"fmt"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

// ConversationService reads and writes the rolling chat history.
type ConversationService interface {
	// History returns at most models.HistoryWindow turns, oldest first.
	History(ctx context.Context, userID string) ([]models.Turn, error)
	// AppendAndTruncate appends turns and keeps the newest models.HistoryWindow.
	// The write runs in the background; the result reports only whether it was queued.
	AppendAndTruncate(userID string, turns ...models.Turn) bool
	// Clear deletes the whole history synchronously.
	Clear(ctx context.Context, userID string) error
}

type conversationService struct {
	store  *repository.Store
	writer worker.Submitter
}

// NewConversationService creates a new conversation service.
func NewConversationService(store *repository.Store, writer worker.Submitter) ConversationService {
	return &conversationService{store: store, writer: writer}
}

func (s *conversationService) History(ctx context.Context, userID string) ([]models.Turn, error) {
	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}

	turns, err := s.store.Conversations.Load(ctx, userID)
	if err != nil {
		return nil, storeError("load chat history", err, apierrors.NewInternalError("Could not retrieve chat history."))
	}
	return models.TruncateHistory(turns, models.HistoryWindow), nil
}

// AppendAndTruncate reads, appends and writes inside one background job.
// Two jobs for the same user may interleave; the last write wins.
func (s *conversationService) AppendAndTruncate(userID string, turns ...models.Turn) bool {
	added := make([]models.Turn, len(turns))
	copy(added, turns)

	return s.writer.Submit("chats.append", func(ctx context.Context) error {
		existing, err := s.store.Conversations.Load(ctx, userID)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		next := append(models.TruncateHistory(existing, models.HistoryWindow), added...)
		return s.store.Conversations.Save(ctx, userID, models.TruncateHistory(next, models.HistoryWindow))
	})
}

func (s *conversationService) Clear(ctx context.Context, userID string) error {
	if !s.store.Available() {
		return apierrors.ErrServiceUnavailable
	}
	if err := s.store.Conversations.Delete(ctx, userID); err != nil {
		return storeError("clear chat history", err,
			apierrors.NewInternalError("An internal error occurred while clearing chat history."))
	}
	return nil
}
