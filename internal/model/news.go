package model

import "time"

// NewsItem is local news for one city (news/{id}). ImageURL points at a
// stored image that must be released when the item is deleted.
type NewsItem struct {
	ID        string    `json:"id"        db:"id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	ImageURL  string    `json:"imageUrl"  db:"image_url"`
	ApplyLink string    `json:"applyLink" db:"apply_link"`
	City      string    `json:"city"      db:"city"`
	Tags      []string  `json:"tags"      db:"tags"`
	LikeCount int       `json:"likeCount" db:"like_count"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
