package model

import "time"

// Notification is written only by server-side triggers, never by clients
// (users/{userId}/notifications/{id}).
type Notification struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Content   string    `json:"content"   db:"content"`
	Link      string    `json:"link"      db:"link"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	IsRead    bool      `json:"isRead"    db:"is_read"`
}
