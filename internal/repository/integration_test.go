package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/database"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/ulid"
)

const envIntegration = "COMPANION_INTEGRATION"

// newIntegrationStore connects to the database described by the COMPANION_DATABASE_*
// settings and applies migrations.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv(envIntegration) == "" {
		t.Skipf("Skipping PostgreSQL integration test: %s not set", envIntegration)
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(cfg.Database))

	pg, err := database.NewPostgres(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	return NewStore(pg.Pool())
}

func TestIntegration_DiaryUpsertIsIdempotentPerDate(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + ulid.New()

	require.NoError(t, s.Diary.Upsert(ctx, userID, &models.DiaryEntry{Date: "2024-01-01", Text: "first"}))
	require.NoError(t, s.Diary.Upsert(ctx, userID, &models.DiaryEntry{Date: "2024-01-01", Text: "second"}))
	require.NoError(t, s.Diary.Upsert(ctx, userID, &models.DiaryEntry{Date: "2024-01-03", Text: "later"}))

	entries, err := s.Diary.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01-03", entries[0].Date)
	assert.Equal(t, "2024-01-01", entries[1].Date)
	assert.Equal(t, "second", entries[1].Text)

	since, err := s.Diary.ListSince(ctx, userID, "2024-01-02")
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "later", since[0].Text)
}

func TestIntegration_Conversation(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + ulid.New()

	turns, err := s.Conversations.Load(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	want := []models.Turn{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Text: "hello"},
	}
	require.NoError(t, s.Conversations.Save(ctx, userID, want))

	turns, err = s.Conversations.Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, want, turns)

	require.NoError(t, s.Conversations.Delete(ctx, userID))
	turns, err = s.Conversations.Load(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestIntegration_UserLifecycle(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + ulid.New()

	missing, err := s.Users.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, s.Users.UpdateConsent(ctx, userID, true, true), ErrNotFound)

	require.NoError(t, s.Users.Upsert(ctx, &models.User{
		ID:                 userID,
		Email:              "sam@example.com",
		Username:           "sam",
		DisplayName:        "sam",
		PreferredAssistant: models.PersonaAlex,
	}))
	require.NoError(t, s.Users.UpdateDisplayName(ctx, userID, "Sam"))
	require.NoError(t, s.Users.UpdateConsent(ctx, userID, true, false))
	require.NoError(t, s.Users.SaveAssessment(ctx, userID, &models.Assessment{PrimaryIssues: "sleep"}))

	u, err := s.Users.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Sam", u.DisplayName)
	assert.Equal(t, models.PersonaAlex, u.PreferredAssistant)
	assert.True(t, u.ConsentProcessing)
	assert.False(t, u.ConsentAnalytics)
	assert.True(t, u.OnboardingComplete)
	require.NotNil(t, u.Assessment)
	assert.Equal(t, "sleep", u.Assessment.PrimaryIssues)
}

func TestIntegration_SafetyEvents(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + ulid.New()

	e := &models.SafetyEvent{UserID: userID, Source: models.SafetySourceChat, MatchedPhrase: "want to die"}
	require.NoError(t, s.Safety.Create(ctx, e))
	assert.True(t, ulid.IsValid(e.ID))

	events, err := s.Safety.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "want to die", events[0].MatchedPhrase)
}
