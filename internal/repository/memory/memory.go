// Package memory provides in-process repository implementations for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/ulid"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
)

// NewStore returns an available Store whose data lives in memory.
func NewStore() *repository.Store {
	return repository.Compose(NewUsers(), NewDiary(), NewConversations(), NewSafety())
}

// Users is an in-memory UserRepository.
type Users struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewUsers creates an empty Users.
func NewUsers() *Users {
	return &Users{users: make(map[string]models.User)}
}

func (r *Users) Get(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if u.Assessment != nil {
		a := *u.Assessment
		u.Assessment = &a
	}
	return &u, nil
}

func (r *Users) Upsert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	next := *user
	next.CreatedAt = now
	if prev, ok := r.users[user.ID]; ok {
		next.CreatedAt = prev.CreatedAt
		next.Assessment = prev.Assessment
	}
	next.UpdatedAt = now
	r.users[user.ID] = next

	user.CreatedAt, user.UpdatedAt = next.CreatedAt, next.UpdatedAt
	return nil
}

func (r *Users) UpdateDisplayName(_ context.Context, id, displayName string) error {
	return r.update(id, func(u *models.User) { u.DisplayName = displayName })
}

func (r *Users) UpdateConsent(_ context.Context, id string, processing, analytics bool) error {
	return r.update(id, func(u *models.User) {
		u.ConsentProcessing = processing
		u.ConsentAnalytics = analytics
	})
}

func (r *Users) SaveAssessment(_ context.Context, id string, assessment *models.Assessment) error {
	a := *assessment
	return r.update(id, func(u *models.User) {
		u.Assessment = &a
		u.OnboardingComplete = true
	})
}

func (r *Users) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

// Diary is an in-memory DiaryRepository keyed by (user, date).
type Diary struct {
	mu      sync.RWMutex
	entries map[string]map[string]models.DiaryEntry
}

// NewDiary creates an empty Diary.
func NewDiary() *Diary {
	return &Diary{entries: make(map[string]map[string]models.DiaryEntry)}
}

func (r *Diary) Upsert(_ context.Context, userID string, entry *models.DiaryEntry) error {
	if _, err := time.Parse(models.DiaryDateLayout, entry.Date); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byDate, ok := r.entries[userID]
	if !ok {
		byDate = make(map[string]models.DiaryEntry)
		r.entries[userID] = byDate
	}
	entry.LastUpdated = time.Now().UTC()
	byDate[entry.Date] = *entry
	return nil
}

func (r *Diary) List(_ context.Context, userID string) ([]models.DiaryEntry, error) {
	out := r.collect(userID, "")
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *Diary) ListSince(_ context.Context, userID, since string) ([]models.DiaryEntry, error) {
	out := r.collect(userID, since)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// collect copies a user's entries dated on or after since. Dates in
// DiaryDateLayout order correctly as strings.
func (r *Diary) collect(userID, since string) []models.DiaryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.DiaryEntry{}
	for date, e := range r.entries[userID] {
		if date >= since {
			out = append(out, e)
		}
	}
	return out
}

// Conversations is an in-memory ConversationRepository.
type Conversations struct {
	mu      sync.RWMutex
	history map[string][]models.Turn
}

// NewConversations creates an empty Conversations.
func NewConversations() *Conversations {
	return &Conversations{history: make(map[string][]models.Turn)}
}

func (r *Conversations) Load(_ context.Context, userID string) ([]models.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Turn, len(r.history[userID]))
	copy(out, r.history[userID])
	return out, nil
}

func (r *Conversations) Save(_ context.Context, userID string, turns []models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]models.Turn, len(turns))
	copy(stored, turns)
	r.history[userID] = stored
	return nil
}

func (r *Conversations) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.history, userID)
	return nil
}

// Safety is an in-memory SafetyRepository.
type Safety struct {
	mu     sync.RWMutex
	events []models.SafetyEvent
}

// NewSafety creates an empty Safety.
func NewSafety() *Safety {
	return &Safety{}
}

func (r *Safety) Create(_ context.Context, event *models.SafetyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = ulid.New()
	}
	event.CreatedAt = time.Now().UTC()
	r.events = append(r.events, *event)
	return nil
}

func (r *Safety) ListByUser(_ context.Context, userID string, limit int) ([]*models.SafetyEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.SafetyEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if r.events[i].UserID == userID {
			e := r.events[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

var (
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.DiaryRepository        = (*Diary)(nil)
	_ repository.ConversationRepository = (*Conversations)(nil)
	_ repository.SafetyRepository       = (*Safety)(nil)
)
