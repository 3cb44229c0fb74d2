package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/ai"
	"github.com/HeadupandFace/cbt-companion-app/internal/identity"
	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/persona"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository/memory"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

var fixedNow = time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// inlineWriter runs jobs synchronously so tests observe their effects immediately.
type inlineWriter struct {
	mu   sync.Mutex
	jobs []string
	errs []error
}

func (w *inlineWriter) Submit(name string, job worker.Job) bool {
	err := job(context.Background())
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobs = append(w.jobs, name)
	if err != nil {
		w.errs = append(w.errs, err)
	}
	return true
}

// MockCompleter is a mock implementation of ai.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type fakeSynthesizer struct {
	clips []string
	err   error
	calls int
	voice persona.VoiceGender
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string, voice persona.VoiceGender) ([]string, error) {
	f.calls++
	f.voice = voice
	return f.clips, f.err
}

type fakeVerifier struct {
	verifyFn func(ctx context.Context, token string) (*identity.Identity, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	return f.verifyFn(ctx, token)
}

func verifierFor(uid, email string) *fakeVerifier {
	return &fakeVerifier{verifyFn: func(_ context.Context, token string) (*identity.Identity, error) {
		if token != "good-token" {
			return nil, identity.ErrInvalidToken
		}
		return &identity.Identity{UID: uid, Email: email}, nil
	}}
}

// failingDiary fails every read.
type failingDiary struct {
	repository.DiaryRepository
}

func (failingDiary) ListSince(context.Context, string, string) ([]models.DiaryEntry, error) {
	return nil, assertErr
}

func (failingDiary) List(context.Context, string) ([]models.DiaryEntry, error) {
	return nil, assertErr
}

func (failingDiary) Upsert(context.Context, string, *models.DiaryEntry) error {
	return assertErr
}

var assertErr = errors.New("boom")

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apierrors.IsAPIError(err), "expected APIError, got %v", err)
	apiErr := apierrors.AsAPIError(err)
	require.Equal(t, status, apiErr.StatusCode)
	if message != "" {
		require.Equal(t, message, apiErr.Message)
	}
}

func newMemoryStore() *repository.Store {
	return memory.NewStore()
}
