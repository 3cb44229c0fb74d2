package models

import "time"

// SafetySource says where a risk signal came from.
type SafetySource string

const (
	SafetySourceChat       SafetySource = "chat"
	SafetySourceAssessment SafetySource = "assessment"
)

// SafetyEvent records that a risk signal was raised. The message text is not kept.
type SafetyEvent struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"user_id" db:"user_id"`
	Source        SafetySource `json:"source" db:"source"`
	MatchedPhrase string       `json:"matched_phrase" db:"matched_phrase"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
