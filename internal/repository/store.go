// Package repository provides data access layer implementations.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned by updates that match no row.
	ErrNotFound = errors.New("repository: record not found")
	// ErrUnavailable is returned by every method of an unavailable store.
	ErrUnavailable = errors.New("repository: database unavailable")
)

// Store groups the repositories the services depend on.
type Store struct {
	Users         UserRepository
	Diary         DiaryRepository
	Conversations ConversationRepository
	Safety        SafetyRepository

	available bool
}

// Available reports whether the store is backed by a live database.
func (s *Store) Available() bool {
	return s != nil && s.available
}

// NewStore creates PostgreSQL-backed repositories sharing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return Compose(
		NewUserRepository(pool),
		NewDiaryRepository(pool),
		NewConversationRepository(pool),
		NewSafetyRepository(pool),
	)
}

// Compose builds an available Store from the given repositories.
func Compose(users UserRepository, diary DiaryRepository, conversations ConversationRepository, safety SafetyRepository) *Store {
	return &Store{
		Users:         users,
		Diary:         diary,
		Conversations: conversations,
		Safety:        safety,
		available:     true,
	}
}
