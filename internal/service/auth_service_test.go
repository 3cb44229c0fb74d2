package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/identity"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository/memory"
)

func newAuth(t *testing.T, store *repository.Store, verifier identity.Verifier, allowed ...string) (AuthService, *inlineWriter) {
	t.Helper()
	writer := &inlineWriter{}
	return NewAuthService(verifier, store, writer, allowed, testLogger()), writer
}

func TestRegister(t *testing.T) {
	store := newMemoryStore()
	svc, writer := newAuth(t, store, verifierFor("uid-1", "sam@example.com"))
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		IDToken:            "good-token",
		Username:           "  <b>Sam</b> ",
		PreferredAssistant: "Alex",
	})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.ID)
	assert.Equal(t, "Sam", user.Username)
	assert.Equal(t, "Sam", user.DisplayName)
	assert.Equal(t, models.PersonaAlex, user.PreferredAssistant)
	assert.Equal(t, []string{"users.register"}, writer.jobs)

	stored, err := store.Users.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "sam@example.com", stored.Email)
	assert.False(t, stored.OnboardingComplete)
	assert.Nil(t, stored.Assessment)
}

func TestRegister_Errors(t *testing.T) {
	valid := RegisterRequest{IDToken: "good-token", Username: "sam", PreferredAssistant: "Clara"}

	tests := []struct {
		name    string
		store   *repository.Store
		allowed []string
		mutate  func(r *RegisterRequest)
		status  int
		errMsg  string
	}{
		{
			name:   "missing token",
			mutate: func(r *RegisterRequest) { r.IDToken = "" },
			status: http.StatusBadRequest,
			errMsg: "Missing required fields.",
		},
		{
			name:   "username is only markup",
			mutate: func(r *RegisterRequest) { r.Username = "<i></i>" },
			status: http.StatusBadRequest,
			errMsg: "Missing required fields.",
		},
		{
			name:   "unknown persona",
			mutate: func(r *RegisterRequest) { r.PreferredAssistant = "Bob" },
			status: http.StatusBadRequest,
		},
		{
			name:   "bad token",
			mutate: func(r *RegisterRequest) { r.IDToken = "forged" },
			status: http.StatusUnauthorized,
			errMsg: "Invalid or expired ID token.",
		},
		{
			name:   "database unavailable",
			store:  repository.UnavailableStore(),
			status: http.StatusInternalServerError,
			errMsg: "Database unavailable.",
		},
		{
			name:    "not on allow list",
			allowed: []string{"someone@example.com"},
			status:  http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = newMemoryStore()
			}
			svc, writer := newAuth(t, store, verifierFor("uid-1", "sam@example.com"), tt.allowed...)

			req := valid
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			_, err := svc.Register(context.Background(), req)
			requireAPIError(t, err, tt.status, tt.errMsg)
			assert.Empty(t, writer.jobs)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("onboarding pending", func(t *testing.T) {
		store := newMemoryStore()
		require.NoError(t, store.Users.Upsert(ctx, &models.User{ID: "uid-1", Email: "sam@example.com", Username: "sam"}))
		svc, _ := newAuth(t, store, verifierFor("uid-1", "sam@example.com"))

		res, err := svc.Login(ctx, LoginRequest{IDToken: "good-token"})
		require.NoError(t, err)
		assert.Equal(t, RedirectOnboarding, res.Redirect)
		assert.Equal(t, "sam", res.User.Username)
	})

	t.Run("onboarding complete", func(t *testing.T) {
		store := newMemoryStore()
		require.NoError(t, store.Users.Upsert(ctx, &models.User{ID: "uid-1", Email: "sam@example.com"}))
		require.NoError(t, store.Users.SaveAssessment(ctx, "uid-1", &models.Assessment{PrimaryIssues: "x"}))
		svc, _ := newAuth(t, store, verifierFor("uid-1", "sam@example.com"))

		res, err := svc.Login(ctx, LoginRequest{IDToken: "good-token"})
		require.NoError(t, err)
		assert.Equal(t, RedirectChat, res.Redirect)
	})

	t.Run("missing profile uses fallback", func(t *testing.T) {
		svc, _ := newAuth(t, newMemoryStore(), verifierFor("uid-2", "jo@example.com"))

		res, err := svc.Login(ctx, LoginRequest{IDToken: "good-token"})
		require.NoError(t, err)
		assert.Equal(t, "jo", res.User.DisplayName)
		assert.Equal(t, models.PersonaClara, res.User.PreferredAssistant)
		assert.Equal(t, RedirectOnboarding, res.Redirect)
	})

	t.Run("allow list is case insensitive", func(t *testing.T) {
		store := newMemoryStore()
		require.NoError(t, store.Users.Upsert(ctx, &models.User{ID: "uid-1", Email: "Sam@Example.com"}))
		svc, _ := newAuth(t, store, verifierFor("uid-1", "Sam@Example.com"), "sam@example.com")

		_, err := svc.Login(ctx, LoginRequest{IDToken: "good-token"})
		require.NoError(t, err)
	})
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		store    *repository.Store
		verifier identity.Verifier
		token    string
		allowed  []string
		status   int
		errMsg   string
	}{
		{
			name:   "missing token",
			status: http.StatusBadRequest,
			errMsg: "ID token missing",
		},
		{
			name:   "invalid token",
			token:  "expired",
			status: http.StatusUnauthorized,
			errMsg: "Invalid or expired ID token.",
		},
		{
			name:     "verifier not configured",
			verifier: identity.Unavailable{},
			token:    "good-token",
			status:   http.StatusInternalServerError,
			errMsg:   "Authentication service is not available.",
		},
		{
			name: "verifier failure",
			verifier: &fakeVerifier{verifyFn: func(context.Context, string) (*identity.Identity, error) {
				return nil, errors.New("certificate fetch failed")
			}},
			token:  "good-token",
			status: http.StatusInternalServerError,
			errMsg: "An internal authentication error occurred.",
		},
		{
			name:     "no profile and no email",
			verifier: verifierFor("uid-9", ""),
			token:    "good-token",
			status:   http.StatusNotFound,
			errMsg:   "User not found after token verification",
		},
		{
			name:    "not on allow list",
			token:   "good-token",
			allowed: []string{"other@example.com"},
			status:  http.StatusForbidden,
		},
		{
			name:   "database unavailable",
			store:  repository.UnavailableStore(),
			token:  "good-token",
			status: http.StatusInternalServerError,
			errMsg: "Database unavailable.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = newMemoryStore()
			}
			verifier := tt.verifier
			if verifier == nil {
				verifier = verifierFor("uid-1", "sam@example.com")
			}
			svc, _ := newAuth(t, store, verifier, tt.allowed...)

			_, err := svc.Login(context.Background(), LoginRequest{IDToken: tt.token})
			requireAPIError(t, err, tt.status, tt.errMsg)
		})
	}
}

func TestLogin_VerifierCauseIsKept(t *testing.T) {
	svc, _ := newAuth(t, newMemoryStore(), verifierFor("uid-1", "sam@example.com"))

	_, err := svc.Login(context.Background(), LoginRequest{IDToken: "forged"})
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("stored profile", func(t *testing.T) {
		store := newMemoryStore()
		require.NoError(t, store.Users.Upsert(ctx, &models.User{ID: "uid-1", DisplayName: "Sammy", PreferredAssistant: models.PersonaAlex}))
		svc, _ := newAuth(t, store, verifierFor("uid-1", ""))

		user := svc.CurrentUser(ctx, "uid-1", "sam@example.com")
		assert.Equal(t, "Sammy", user.DisplayName)
		assert.Equal(t, models.PersonaAlex, user.PreferredAssistant)
	})

	t.Run("store unavailable", func(t *testing.T) {
		svc, _ := newAuth(t, repository.UnavailableStore(), verifierFor("uid-1", ""))

		user := svc.CurrentUser(ctx, "uid-1", "sam@example.com")
		assert.Equal(t, "uid-1", user.ID)
		assert.Equal(t, "sam", user.DisplayName)
	})

	t.Run("read failure", func(t *testing.T) {
		mem := memory.NewStore()
		store := repository.Compose(failingUsers{mem.Users}, mem.Diary, mem.Conversations, mem.Safety)
		svc, _ := newAuth(t, store, verifierFor("uid-1", ""))

		user := svc.CurrentUser(ctx, "uid-1", "sam@example.com")
		assert.Equal(t, "sam", user.Username)
	})
}

type failingUsers struct {
	repository.UserRepository
}

func (failingUsers) Get(context.Context, string) (*models.User, error) {
	return nil, assertErr
}
