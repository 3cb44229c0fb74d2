package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/HeadupandFace/cbt-companion-app/internal/identity"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/sanitize"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

// Redirect targets handed back to the client after authentication.
const (
	RedirectChat       = "/chat"
	RedirectOnboarding = "/onboarding"
)

var errAuthInternal = apierrors.NewInternalError("An internal authentication error occurred.")

// AuthService defines registration, login and session user resolution.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// CurrentUser resolves the profile behind a session. It never fails: when the
	// profile is missing or unreadable an in-memory fallback profile is returned.
	CurrentUser(ctx context.Context, id, email string) *models.User
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	IDToken            string `json:"idToken" validate:"required"`
	Username           string `json:"username" validate:"required,max=50"`
	PreferredAssistant string `json:"preferred_assistant" validate:"required"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// LoginResult carries the authenticated user and where the client goes next.
type LoginResult struct {
	User     *models.User
	Redirect string
}

type authService struct {
	verifier identity.Verifier
	store    *repository.Store
	writer   worker.Submitter
	allowed  []string
	logger   *slog.Logger
}

// NewAuthService creates a new auth service. allowedEmails restricts access when non-empty.
func NewAuthService(
	verifier identity.Verifier,
	store *repository.Store,
	writer worker.Submitter,
	allowedEmails []string,
	logger *slog.Logger,
) AuthService {
	return &authService{
		verifier: verifier,
		store:    store,
		writer:   writer,
		allowed:  allowedEmails,
		logger:   logger,
	}
}

// Register verifies the token and writes a fresh profile in the background.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username := sanitize.Trimmed(req.Username)
	if req.IDToken == "" || username == "" || req.PreferredAssistant == "" {
		return nil, apierrors.ErrBadRequest.WithMessage("Missing required fields.")
	}
	persona := models.Persona(req.PreferredAssistant)
	if !persona.Valid() {
		return nil, apierrors.NewValidationError("preferred_assistant", "must be Clara or Alex")
	}
	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}

	id, err := s.verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if !s.isAllowed(id.Email) {
		return nil, apierrors.ErrForbidden
	}

	user := &models.User{
		ID:                 id.UID,
		Email:              id.Email,
		Username:           username,
		DisplayName:        username,
		PreferredAssistant: persona,
	}
	profile := *user
	s.writer.Submit("users.register", func(ctx context.Context) error {
		return s.store.Users.Upsert(ctx, &profile)
	})

	return user, nil
}

// Login verifies the token and decides whether onboarding is still pending.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.IDToken == "" {
		return nil, apierrors.ErrBadRequest.WithMessage("ID token missing")
	}
	if !s.store.Available() {
		return nil, apierrors.ErrDatabaseUnavailable
	}

	id, err := s.verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.Get(ctx, id.UID)
	if err != nil {
		return nil, storeError("load profile", err, errAuthInternal)
	}
	if user == nil {
		if id.Email == "" {
			return nil, apierrors.NewNotFoundError("User not found after token verification")
		}
		user = models.FallbackUser(id.UID, id.Email)
	}

	if !s.isAllowed(user.Email) {
		s.logger.Warn("login rejected by allow list", slog.String("user_id", user.ID))
		return nil, apierrors.ErrForbidden
	}

	redirect := RedirectOnboarding
	if user.OnboardingComplete {
		redirect = RedirectChat
	}
	return &LoginResult{User: user, Redirect: redirect}, nil
}

func (s *authService) CurrentUser(ctx context.Context, id, email string) *models.User {
	if !s.store.Available() {
		return models.FallbackUser(id, email)
	}
	user, err := s.store.Users.Get(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load profile, using fallback",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		return models.FallbackUser(id, email)
	}
	if user == nil {
		return models.FallbackUser(id, email)
	}
	return user
}

func (s *authService) verify(ctx context.Context, token string) (*identity.Identity, error) {
	id, err := s.verifier.Verify(ctx, token)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, identity.ErrInvalidToken):
		return nil, fmt.Errorf("verify token: %w: %w", apierrors.ErrUnauthorized.WithMessage("Invalid or expired ID token."), err)
	case errors.Is(err, identity.ErrUnavailable):
		return nil, fmt.Errorf("verify token: %w: %w", apierrors.NewInternalError("Authentication service is not available."), err)
	default:
		return nil, fmt.Errorf("verify token: %w: %w", errAuthInternal, err)
	}
}

func (s *authService) isAllowed(email string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	return slices.Contains(s.allowed, strings.ToLower(strings.TrimSpace(email)))
}
