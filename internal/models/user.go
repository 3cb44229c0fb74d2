// Package models defines the domain types stored and served by the companion.
package models

import (
	"strings"
	"time"
)

// Persona names the assistant a user chose to talk to.
type Persona string

const (
	// PersonaClara is the compassionate, warm assistant.
	PersonaClara Persona = "Clara"
	// PersonaAlex is the action-oriented, practical assistant.
	PersonaAlex Persona = "Alex"
)

// Valid reports whether p is one of the known personas.
func (p Persona) Valid() bool {
	return p == PersonaClara || p == PersonaAlex
}

// User is a registered account and its onboarding state.
type User struct {
	ID                 string      `json:"user_id" db:"id"`
	Email              string      `json:"email" db:"email"`
	Username           string      `json:"username" db:"username"`
	DisplayName        string      `json:"display_name" db:"display_name"`
	PreferredAssistant Persona     `json:"preferred_assistant" db:"preferred_assistant"`
	ConsentProcessing  bool        `json:"consent_processing" db:"consent_processing"`
	ConsentAnalytics   bool        `json:"consent_analytics" db:"consent_analytics"`
	OnboardingComplete bool        `json:"onboarding_complete" db:"onboarding_complete"`
	Assessment         *Assessment `json:"assessment,omitempty" db:"assessment"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// Name returns the name the assistant should use for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// FallbackUser builds an in-memory profile for an identity that has no stored profile yet.
func FallbackUser(id, email string) *User {
	username, _, _ := strings.Cut(email, "@")
	return &User{
		ID:                 id,
		Email:              email,
		Username:           username,
		DisplayName:        username,
		PreferredAssistant: PersonaClara,
	}
}

// Assessment holds the onboarding questionnaire answers. One per user, overwritten on
// each submission.
type Assessment struct {
	PrimaryIssues           string    `json:"primary_issues"`
	DailyImpact             string    `json:"daily_impact"`
	TherapyGoals            string    `json:"therapy_goals"`
	CopingStrategies        string    `json:"coping_strategies"`
	SelfHarmRisk            bool      `json:"self_harm_risk"`
	SafetyAlertAcknowledged bool      `json:"safety_alert_acknowledged,omitempty"`
	AssessmentDate          time.Time `json:"assessment_date"`
}
