package repository

import (
	"context"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// UnavailableStore returns a Store whose every method fails with ErrUnavailable.
// The server runs with it when the database cannot be reached at startup.
func UnavailableStore() *Store {
	return &Store{
		Users:         unavailableUsers{},
		Diary:         unavailableDiary{},
		Conversations: unavailableConversations{},
		Safety:        unavailableSafety{},
	}
}

type unavailableUsers struct{}

func (unavailableUsers) Get(context.Context, string) (*models.User, error) {
	return nil, ErrUnavailable
}
func (unavailableUsers) Upsert(context.Context, *models.User) error { return ErrUnavailable }
func (unavailableUsers) UpdateDisplayName(context.Context, string, string) error {
	return ErrUnavailable
}
func (unavailableUsers) UpdateConsent(context.Context, string, bool, bool) error {
	return ErrUnavailable
}
func (unavailableUsers) SaveAssessment(context.Context, string, *models.Assessment) error {
	return ErrUnavailable
}

type unavailableDiary struct{}

func (unavailableDiary) Upsert(context.Context, string, *models.DiaryEntry) error {
	return ErrUnavailable
}
func (unavailableDiary) List(context.Context, string) ([]models.DiaryEntry, error) {
	return nil, ErrUnavailable
}
func (unavailableDiary) ListSince(context.Context, string, string) ([]models.DiaryEntry, error) {
	return nil, ErrUnavailable
}

type unavailableConversations struct{}

func (unavailableConversations) Load(context.Context, string) ([]models.Turn, error) {
	return nil, ErrUnavailable
}
func (unavailableConversations) Save(context.Context, string, []models.Turn) error {
	return ErrUnavailable
}
func (unavailableConversations) Delete(context.Context, string) error { return ErrUnavailable }

type unavailableSafety struct{}

func (unavailableSafety) Create(context.Context, *models.SafetyEvent) error { return ErrUnavailable }
func (unavailableSafety) ListByUser(context.Context, string, int) ([]*models.SafetyEvent, error) {
	return nil, ErrUnavailable
}

var (
	_ UserRepository         = (*userRepo)(nil)
	_ UserRepository         = unavailableUsers{}
	_ DiaryRepository        = (*diaryRepo)(nil)
	_ DiaryRepository        = unavailableDiary{}
	_ ConversationRepository = (*conversationRepo)(nil)
	_ ConversationRepository = unavailableConversations{}
	_ SafetyRepository       = (*safetyRepo)(nil)
	_ SafetyRepository       = unavailableSafety{}
)
