// Package safety detects messages that suggest a risk of self-harm.
//
// Detection is plain case-insensitive substring matching over a fixed phrase list.
// It deliberately over-triggers: negated statements ("I do not want to die") and
// phrases embedded in longer words still match.
package safety

import (
	"html"
	"strings"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// CrisisMessage is returned in place of an assistant reply when a phrase matches.
const CrisisMessage = "It sounds like you are going through a very difficult time..."

// phrases must stay lower case.
var phrases = []string{
	"kill myself",
	"suicide",
	"overdose",
	"end my life",
	"want to die",
	"hang myself",
	"can't go on",
	"no reason to live",
	"self harm",
	"self-harm",
	"ending it all",
	"jump off a bridge",
	"slit my wrists",
}

// Phrases returns a copy of the crisis phrase list.
func Phrases() []string {
	out := make([]string, len(phrases))
	copy(out, phrases)
	return out
}

// Match returns the first crisis phrase contained in message.
func Match(message string) (string, bool) {
	// Sanitized input arrives HTML-escaped.
	lower := strings.ToLower(html.UnescapeString(message))
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// Detect reports whether message contains any crisis phrase.
func Detect(message string) bool {
	_, ok := Match(message)
	return ok
}

// DefaultSupportContacts returns the UK crisis lines shown alongside CrisisMessage.
func DefaultSupportContacts() models.SupportContacts {
	return models.SupportContacts{
		SamaritansTitle: "Samaritans (Free, 24/7)",
		SamaritansPhone: "116 123",
		NHSTitle:        "NHS Urgent Mental Health Helpline",
		NHSPhone:        "111",
		EmergencyTitle:  "Emergency Services",
		EmergencyPhone:  "999 or 112",
	}
}

// CrisisReply builds the short-circuit response for a detected crisis.
func CrisisReply() *models.ChatReply {
	contacts := DefaultSupportContacts()
	return &models.ChatReply{
		AIResponse:      CrisisMessage,
		AudioClips:      []string{},
		CrisisAlert:     true,
		SupportContacts: &contacts,
	}
}
