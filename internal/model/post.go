package model

import "time"

// Post is a community board entry scoped to one city (posts/{id}).
type Post struct {
	ID           string    `json:"id"           db:"id"`
	Title        string    `json:"title"        db:"title"`
	Content      string    `json:"content"      db:"content"`
	Category     string    `json:"category"     db:"category"`
	City         string    `json:"city"         db:"city"`
	AuthorID     string    `json:"authorId"     db:"author_id"`
	AuthorName   string    `json:"authorName"   db:"author_name"`
	ImageURL     string    `json:"imageUrl"     db:"image_url"`
	LikedBy      []string  `json:"likedBy"`
	CommentCount int       `json:"commentCount" db:"comment_count"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// LikeCount is the size of the LikedBy set.
func (p Post) LikeCount() int {
	return len(p.LikedBy)
}

// Comment lives under its post (posts/{postId}/comments/{id}).
type Comment struct {
	ID         string    `json:"id"         db:"id"`
	PostID     string    `json:"postId"     db:"post_id"`
	AuthorID   string    `json:"authorId"   db:"author_id"`
	AuthorName string    `json:"authorName" db:"author_name"`
	Content    string    `json:"content"    db:"content"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

// Report accumulates under a post (posts/{postId}/reports/{id}).
// A reporter can report a given post once.
type Report struct {
	ID         string    `json:"id"         db:"id"`
	PostID     string    `json:"postId"     db:"post_id"`
	ReporterID string    `json:"reporterId" db:"reporter_id"`
	Reason     string    `json:"reason"     db:"reason"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
