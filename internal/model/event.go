package model

import "time"

// Calendar event types. Only user-authored events get reminders.
const (
	EventTypeUser   = "user"
	EventTypeSystem = "system"
)

// DateLayout is the calendar day key format.
const DateLayout = "2006-01-02"

// CalendarEvent belongs to one user (users/{userId}/events/{id}).
//
// Date has day granularity and is used for calendar grouping. StartTime is
// optional and drives the one-hour-ahead reminder; RemindedAt is set once
// that reminder has been written.
type CalendarEvent struct {
	ID         string     `json:"id"                   db:"id"`
	UserID     string     `json:"userId"               db:"user_id"`
	Date       string     `json:"date"                 db:"date"`
	StartTime  *time.Time `json:"startTime,omitempty"  db:"start_time"`
	Title      string     `json:"title"                db:"title"`
	Type       string     `json:"type"                 db:"type"`
	RemindedAt *time.Time `json:"remindedAt,omitempty" db:"reminded_at"`
	CreatedAt  time.Time  `json:"createdAt"            db:"created_at"`
}

// Path is the event's document path. The owner is recovered from it.
func (e CalendarEvent) Path() string {
	return "users/" + e.UserID + "/events/" + e.ID
}
