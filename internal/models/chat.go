package models

// SupportContacts lists crisis helplines in the flat shape the chat client renders.
type SupportContacts struct {
	SamaritansTitle string `json:"samaritans_title"`
	SamaritansPhone string `json:"samaritans_phone"`
	NHSTitle        string `json:"nhs_title"`
	NHSPhone        string `json:"nhs_phone"`
	EmergencyTitle  string `json:"emergency_title"`
	EmergencyPhone  string `json:"emergency_phone"`
}

// Contact is a single name/phone pair.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// List returns the contacts as ordered name/phone pairs.
func (c SupportContacts) List() []Contact {
	return []Contact{
		{Name: c.SamaritansTitle, Phone: c.SamaritansPhone},
		{Name: c.NHSTitle, Phone: c.NHSPhone},
		{Name: c.EmergencyTitle, Phone: c.EmergencyPhone},
	}
}

// ChatReply is the body returned by the chat endpoint.
type ChatReply struct {
	AIResponse      string           `json:"ai_response"`
	AudioClips      []string         `json:"audio_clips"`
	CrisisAlert     bool             `json:"crisis_alert,omitempty"`
	SupportContacts *SupportContacts `json:"support_contacts,omitempty"`
}
