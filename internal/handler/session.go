package handler

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
)

// Session value keys.
const (
	sessionUserID     = "user_id"
	sessionEmail      = "email"
	sessionAssessment = "assessment_data"
)

// Sessions wraps the signed and encrypted cookie session.
type Sessions struct {
	store sessions.Store
	name  string
}

// NewSessions creates a cookie session store. Signing and encryption keys
// are derived from cfg.Secret so a single configured secret is enough.
func NewSessions(cfg config.SessionConfig, secure bool) (*Sessions, error) {
	hashKey, blockKey, err := deriveKeys(cfg.Secret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.MaxAge(int(cfg.MaxAge.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode

	return &Sessions{store: store, name: cfg.Name}, nil
}

func deriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	if secret == "" {
		return nil, nil, fmt.Errorf("session secret is empty")
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("cbt-companion session"))
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive session hash key: %w", err)
	}
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive session block key: %w", err)
	}
	return hashKey, blockKey, nil
}

// Identity returns the user bound to the request's session.
func (s *Sessions) Identity(r *http.Request) (id, email string, ok bool) {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return "", "", false
	}
	id, _ = session.Values[sessionUserID].(string)
	email, _ = session.Values[sessionEmail].(string)
	return id, email, id != ""
}

// Start binds the session to a user, dropping anything stored before.
func (s *Sessions) Start(w http.ResponseWriter, r *http.Request, id, email string) error {
	// A cookie that no longer decodes still yields a usable new session.
	session, _ := s.store.Get(r, s.name)
	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Values[sessionUserID] = id
	session.Values[sessionEmail] = email
	return session.Save(r, w)
}

// End expires the session cookie.
func (s *Sessions) End(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// StashAssessment holds answers until the crisis support page is acknowledged.
func (s *Sessions) StashAssessment(w http.ResponseWriter, r *http.Request, answers service.AssessmentAnswers) error {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	session.Values[sessionAssessment] = string(raw)
	return session.Save(r, w)
}

// PopAssessment returns and removes the stashed answers. It returns nil when
// nothing is stashed.
func (s *Sessions) PopAssessment(w http.ResponseWriter, r *http.Request) (*service.AssessmentAnswers, error) {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return nil, err
	}
	raw, ok := session.Values[sessionAssessment].(string)
	if !ok {
		return nil, nil
	}
	delete(session.Values, sessionAssessment)
	if err := session.Save(r, w); err != nil {
		return nil, err
	}

	var answers service.AssessmentAnswers
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("decode stashed assessment: %w", err)
	}
	return &answers, nil
}
