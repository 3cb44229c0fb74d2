package service

import (
	"context"
	"log/slog"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

// SafetyService records risk signals. Only the matched phrase is kept, never the message.
type SafetyService interface {
	// Record stores the event in the background.
	Record(userID string, source models.SafetySource, phrase string)
}

type safetyService struct {
	repo   repository.SafetyRepository
	writer worker.Submitter
	logger *slog.Logger
}

// NewSafetyService creates a new safety service.
func NewSafetyService(repo repository.SafetyRepository, writer worker.Submitter, logger *slog.Logger) SafetyService {
	return &safetyService{repo: repo, writer: writer, logger: logger}
}

func (s *safetyService) Record(userID string, source models.SafetySource, phrase string) {
	s.logger.Warn("safety signal raised",
		slog.String("user_id", userID),
		slog.String("source", string(source)),
		slog.String("matched_phrase", phrase),
	)

	event := &models.SafetyEvent{UserID: userID, Source: source, MatchedPhrase: phrase}
	s.writer.Submit("safety.record", func(ctx context.Context) error {
		return s.repo.Create(ctx, event)
	})
}
