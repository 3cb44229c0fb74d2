package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository/memory"
)

func newDiary(store *repository.Store, now time.Time) *diaryService {
	svc := NewDiaryService(store).(*diaryService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDiary_SameDayOverwrites(t *testing.T) {
	store := newMemoryStore()
	svc := newDiary(store, fixedNow)
	ctx := context.Background()

	first, err := svc.Save(ctx, "uid-1", DiaryRequest{Text: "first draft"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", first.Date)

	_, err = svc.Save(ctx, "uid-1", DiaryRequest{Text: "final <b>version</b>"})
	require.NoError(t, err)

	entries, err := svc.List(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "final version", entries[0].Text)
}

func TestDiary_ListNewestFirst(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	for _, day := range []int{3, 1, 2} {
		svc := newDiary(store, time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC))
		_, err := svc.Save(ctx, "uid-1", DiaryRequest{Text: "entry"})
		require.NoError(t, err)
	}

	entries, err := newDiary(store, fixedNow).List(ctx, "uid-1")
	require.NoError(t, err)
	dates := make([]string, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	assert.Equal(t, []string{"2024-01-03", "2024-01-02", "2024-01-01"}, dates)
}

func TestDiary_RecentWindow(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	for _, date := range []string{"2023-12-31", "2024-01-01", "2024-01-05"} {
		require.NoError(t, store.Diary.Upsert(ctx, "uid-1", &models.DiaryEntry{Date: date, Text: date}))
	}

	entries, err := newDiary(store, fixedNow).Recent(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01-01", entries[0].Date)
	assert.Equal(t, "2024-01-05", entries[1].Date)
}

func TestDiary_Errors(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	broken := repository.Compose(mem.Users, failingDiary{}, mem.Conversations, mem.Safety)

	t.Run("list failure", func(t *testing.T) {
		_, err := newDiary(broken, fixedNow).List(ctx, "uid-1")
		requireAPIError(t, err, http.StatusInternalServerError, "Could not retrieve diary entries.")
	})

	t.Run("save failure", func(t *testing.T) {
		_, err := newDiary(broken, fixedNow).Save(ctx, "uid-1", DiaryRequest{Text: "x"})
		requireAPIError(t, err, http.StatusInternalServerError, "Could not save diary entry.")
	})

	t.Run("database unavailable", func(t *testing.T) {
		svc := newDiary(repository.UnavailableStore(), fixedNow)
		_, err := svc.List(ctx, "uid-1")
		requireAPIError(t, err, http.StatusInternalServerError, "Database unavailable.")
		_, err = svc.Save(ctx, "uid-1", DiaryRequest{Text: "x"})
		requireAPIError(t, err, http.StatusInternalServerError, "Database unavailable.")
	})
}
