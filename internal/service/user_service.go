package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/sanitize"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

// Onboarding redirect targets.
const (
	RedirectConsent       = "/onboarding/consent"
	RedirectAssessment    = "/onboarding/assessment"
	RedirectCrisisSupport = "/crisis_support"
)

// SelfHarmPhrase is recorded as the matched phrase for assessment-sourced safety events.
const SelfHarmPhrase = "self_harm_thoughts"

// UserService drives the onboarding steps.
type UserService interface {
	// UpdateDisplayName stores the name in the background and returns the sanitized value.
	UpdateDisplayName(ctx context.Context, userID, displayName string) (string, error)
	SaveConsent(ctx context.Context, userID string, req ConsentRequest) error
	// SubmitAssessment stores the answers unless the user reports self-harm thoughts,
	// in which case nothing is stored and NeedsCrisisSupport is set.
	SubmitAssessment(ctx context.Context, userID string, answers AssessmentAnswers) (*AssessmentOutcome, error)
	// AcknowledgeSafetyAlert stores answers held back by SubmitAssessment.
	AcknowledgeSafetyAlert(ctx context.Context, userID string, answers AssessmentAnswers) (*models.Assessment, error)
}

// DisplayNameRequest is the onboarding name form.
type DisplayNameRequest struct {
	DisplayName string `validate:"required,min=1,max=50"`
}

// ConsentRequest is the body of POST /api/save_consent. Pointers distinguish
// a missing flag from false.
type ConsentRequest struct {
	ConsentProcessing *bool `json:"consent_processing" validate:"required"`
	ConsentAnalytics  *bool `json:"consent_analytics" validate:"required"`
}

// AssessmentAnswers is the onboarding questionnaire. Answers may be held in
// the session cookie, which bounds their length.
type AssessmentAnswers struct {
	PrimaryIssues    string `json:"primary_issues" validate:"required,max=400"`
	DailyImpact      string `json:"daily_impact" validate:"required,max=400"`
	TherapyGoals     string `json:"therapy_goals" validate:"required,max=400"`
	CopingStrategies string `json:"coping_strategies" validate:"required,max=400"`
	SelfHarmThoughts string `json:"self_harm_thoughts" validate:"required,oneof=yes no"`
}

// AssessmentOutcome reports what SubmitAssessment did.
type AssessmentOutcome struct {
	Assessment         *models.Assessment
	NeedsCrisisSupport bool
	Redirect           string
}

type userService struct {
	store  *repository.Store
	safety SafetyService
	writer worker.Submitter
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new onboarding service.
func NewUserService(store *repository.Store, safety SafetyService, writer worker.Submitter, logger *slog.Logger) UserService {
	return &userService{
		store:  store,
		safety: safety,
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

func (s *userService) UpdateDisplayName(ctx context.Context, userID, displayName string) (string, error) {
	name := sanitize.Trimmed(displayName)
	if name == "" {
		return "", apierrors.NewValidationError("display_name", "is required")
	}

	s.writer.Submit("users.display_name", func(ctx context.Context) error {
		return s.store.Users.UpdateDisplayName(ctx, userID, name)
	})
	return name, nil
}

func (s *userService) SaveConsent(ctx context.Context, userID string, req ConsentRequest) error {
	if req.ConsentProcessing == nil || req.ConsentAnalytics == nil {
		return apierrors.ErrBadRequest.WithMessage("Invalid data types for consent flags")
	}
	if !s.store.Available() {
		return apierrors.ErrDatabaseUnavailable
	}

	err := s.store.Users.UpdateConsent(ctx, userID, *req.ConsentProcessing, *req.ConsentAnalytics)
	if err != nil {
		return storeError("save consent", err, apierrors.NewInternalError("Could not save consent choices"))
	}
	return nil
}

func (s *userService) SubmitAssessment(ctx context.Context, userID string, answers AssessmentAnswers) (*AssessmentOutcome, error) {
	if answers.SelfHarmThoughts == "yes" {
		s.safety.Record(userID, models.SafetySourceAssessment, SelfHarmPhrase)
		return &AssessmentOutcome{NeedsCrisisSupport: true, Redirect: RedirectCrisisSupport}, nil
	}

	a := s.assessment(answers)
	s.save(userID, a)
	return &AssessmentOutcome{Assessment: a, Redirect: RedirectChat}, nil
}

func (s *userService) AcknowledgeSafetyAlert(ctx context.Context, userID string, answers AssessmentAnswers) (*models.Assessment, error) {
	a := s.assessment(answers)
	a.SelfHarmRisk = true
	a.SafetyAlertAcknowledged = true
	s.save(userID, a)
	return a, nil
}

func (s *userService) assessment(answers AssessmentAnswers) *models.Assessment {
	return &models.Assessment{
		PrimaryIssues:    sanitize.Trimmed(answers.PrimaryIssues),
		DailyImpact:      sanitize.Trimmed(answers.DailyImpact),
		TherapyGoals:     sanitize.Trimmed(answers.TherapyGoals),
		CopingStrategies: sanitize.Trimmed(answers.CopingStrategies),
		AssessmentDate:   s.now().UTC(),
	}
}

func (s *userService) save(userID string, a *models.Assessment) {
	s.writer.Submit("users.assessment", func(ctx context.Context) error {
		return s.store.Users.SaveAssessment(ctx, userID, a)
	})
}
