package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/HeadupandFace/cbt-companion-app/internal/ai"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/persona"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/sanitize"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/safety"
	"github.com/HeadupandFace/cbt-companion-app/internal/speech"
)

// Stage names one step of the chat pipeline.
type Stage string

const (
	StageReceived            Stage = "RECEIVED"
	StageSanitized           Stage = "SANITIZED"
	StageCrisisShortCircuit  Stage = "CRISIS_SHORT_CIRCUIT"
	StageAuthorized          Stage = "AUTHORIZED"
	StageHistoryLoaded       Stage = "HISTORY_LOADED"
	StagePersonaComposed     Stage = "PERSONA_COMPOSED"
	StageCompletionRequested Stage = "COMPLETION_REQUESTED"
	StageReplyObtained       Stage = "REPLY_OBTAINED"
	StageSynthesisRequested  Stage = "SYNTHESIS_REQUESTED"
	StagePersisted           Stage = "PERSISTED"
	StageResponded           Stage = "RESPONDED"
)

// ChatService answers one chat message end to end.
type ChatService interface {
	Respond(ctx context.Context, user *models.User, req ChatRequest) (*models.ChatReply, error)
}

// MaxMessageLength bounds a message sent on to the completer. Crisis matching
// runs on the full message first.
const MaxMessageLength = 4000

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

type chatService struct {
	store         *repository.Store
	conversations ConversationService
	diary         DiaryService
	safety        SafetyService
	completer     ai.Completer
	synthesizer   speech.Synthesizer
	logger        *slog.Logger
}

// NewChatService creates the chat pipeline.
func NewChatService(
	store *repository.Store,
	conversations ConversationService,
	diary DiaryService,
	safety SafetyService,
	completer ai.Completer,
	synthesizer speech.Synthesizer,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		store:         store,
		conversations: conversations,
		diary:         diary,
		safety:        safety,
		completer:     completer,
		synthesizer:   synthesizer,
		logger:        logger,
	}
}

// Respond runs the pipeline. A crisis phrase returns the fixed support reply
// without calling the completer, producing audio or touching the history.
// Every failure after authorization is reported as ErrAssistantFailure.
func (s *chatService) Respond(ctx context.Context, user *models.User, req ChatRequest) (*models.ChatReply, error) {
	s.stage(ctx, StageReceived, user.ID)

	// Markup removal can drop text, so the raw message is matched too.
	message := sanitize.Trimmed(req.Message)
	phrase, crisis := safety.Match(req.Message)
	if !crisis {
		phrase, crisis = safety.Match(message)
	}
	if crisis {
		s.stage(ctx, StageCrisisShortCircuit, user.ID)
		s.safety.Record(user.ID, models.SafetySourceChat, phrase)
		return safety.CrisisReply(), nil
	}

	if message == "" {
		return nil, apierrors.ErrBadRequest.WithMessage("No message provided")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, apierrors.NewValidationError("message", fmt.Sprintf("must be at most %d characters", MaxMessageLength))
	}
	s.stage(ctx, StageSanitized, user.ID)

	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}
	s.stage(ctx, StageAuthorized, user.ID)

	history, err := s.conversations.History(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w: %w", apierrors.ErrAssistantFailure, err)
	}
	s.stage(ctx, StageHistoryLoaded, user.ID, slog.Int("turns", len(history)))

	in := persona.Input{
		Persona:     user.PreferredAssistant,
		DisplayName: user.Name(),
		Assessment:  user.Assessment,
	}
	in.Diary, err = s.diary.Recent(ctx, user.ID)
	if err != nil {
		s.logger.Warn("could not fetch diary for context",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		in.DiaryFailed = true
	}
	instruction := persona.Compose(in)
	s.stage(ctx, StagePersonaComposed, user.ID)

	s.stage(ctx, StageCompletionRequested, user.ID)
	reply, err := s.completer.Complete(ctx, ai.Request{
		SystemInstruction: instruction,
		History:           history,
		Message:           message,
	})
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, fmt.Errorf("complete: %w: %w", apierrors.NewInternalError("AI assistant is not configured."), err)
		}
		return nil, fmt.Errorf("complete: %w: %w", apierrors.ErrAssistantFailure, err)
	}
	s.stage(ctx, StageReplyObtained, user.ID)

	s.stage(ctx, StageSynthesisRequested, user.ID)
	clips, err := s.synthesizer.Synthesize(ctx, reply, persona.Lookup(user.PreferredAssistant).Voice)
	if err != nil {
		s.logger.Warn("speech synthesis failed, returning text with partial audio",
			slog.String("user_id", user.ID),
			slog.Int("clips", len(clips)),
			slog.String("error", err.Error()),
		)
	}
	if clips == nil {
		clips = []string{}
	}

	s.conversations.AppendAndTruncate(user.ID,
		models.Turn{Role: models.RoleUser, Text: message},
		models.Turn{Role: models.RoleAssistant, Text: reply},
	)
	s.stage(ctx, StagePersisted, user.ID)

	s.stage(ctx, StageResponded, user.ID, slog.Int("audio_clips", len(clips)))
	return &models.ChatReply{AIResponse: reply, AudioClips: clips}, nil
}

func (s *chatService) stage(ctx context.Context, stage Stage, userID string, attrs ...slog.Attr) {
	args := []slog.Attr{slog.String("stage", string(stage)), slog.String("user_id", userID)}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "chat pipeline", append(args, attrs...)...)
}
