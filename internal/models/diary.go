package models

import "time"

// DiaryDateLayout is the calendar-day key format for diary entries.
const DiaryDateLayout = "2006-01-02"

// DiaryEntry is one note per calendar day per user.
type DiaryEntry struct {
	Date        string    `json:"date"`
	Text        string    `json:"text"`
	LastUpdated time.Time `json:"-"`
}
