// Package repository defines the storage contracts the services depend on.
//
// Each interface names one collection of the document model. The SQLite
// implementation in repository/sqlite satisfies all of them with a single
// *sqlite.DB; tests substitute hand-written fakes.
package repository

import (
	"context"
	"time"

	"github.com/maeuln/community/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// PostFilter selects posts. Empty fields do not filter.
type PostFilter struct {
	City     string
	Category string
	// AuthorIDs restricts to posts written by any of the ids. An empty
	// slice means no author filter, so callers that want "nobody" must not
	// query at all.
	AuthorIDs []string
	// ByLikes orders by like count, most liked first. Posts with equal
	// counts stay newest first.
	ByLikes bool
	ListOptions
}

// NewsFilter selects news items. An empty City means nationwide.
type NewsFilter struct {
	City string
	ListOptions
}

// EventFilter selects one user's calendar events by date key, inclusive.
// Empty bounds are open.
type EventFilter struct {
	From string
	To   string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.UserProfile) error
	GetUserByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	// UpsertGoogleUser links a Google account to the user with the same
	// email, or creates one. Profile fields the user already set are kept.
	UpsertGoogleUser(ctx context.Context, user *model.UserProfile) error
	UpdateProfile(ctx context.Context, user *model.UserProfile) error
	// SetRegion assigns region, city and town exactly once. A second call
	// returns an apperror.ErrConflict.
	SetRegion(ctx context.Context, id, region, city, town string) error
	SetRole(ctx context.Context, id, role string) error
}

// EngagementRepository flips set membership atomically. Each method
// reports whether the id is a member after the call.
type EngagementRepository interface {
	ToggleNewsLike(ctx context.Context, userID, newsID string) (bool, error)
	TogglePostLike(ctx context.Context, userID, postID string) (bool, error)
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error)
	// DeletePost removes the post with its comments, reports and likes.
	DeletePost(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
}

type ReportRepository interface {
	// CreateReport fails with apperror.ErrConflict when the reporter already
	// reported the post, and apperror.ErrNotFound when the post is gone.
	CreateReport(ctx context.Context, report *model.Report) error
	CountReports(ctx context.Context, postID string) (int, error)
	// DeletePostIfReported counts the post's reports and deletes it when the
	// count reaches threshold, in one transaction. It returns the deleted
	// post, or nil when the post is missing or below the threshold.
	DeletePostIfReported(ctx context.Context, postID string, threshold int) (*model.Post, error)
}

type NewsRepository interface {
	CreateNews(ctx context.Context, news *model.NewsItem) error
	GetNews(ctx context.Context, id string) (*model.NewsItem, error)
	ListNews(ctx context.Context, filter NewsFilter) ([]model.NewsItem, error)
	DeleteNews(ctx context.Context, id string) error
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.CalendarEvent) error
	GetEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error)
	UpdateEvent(ctx context.Context, event *model.CalendarEvent) error
	DeleteEvent(ctx context.Context, userID, id string) error
	ListEvents(ctx context.Context, userID string, filter EventFilter) ([]model.CalendarEvent, error)
	// ListDueReminders returns user-authored, not yet reminded events of all
	// users whose start time lies in [from, to].
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
	// CreateReminder marks the event reminded and stores the notification
	// in one transaction. It returns false, writing nothing, when the event
	// was already reminded or no longer exists.
	CreateReminder(ctx context.Context, event model.CalendarEvent, notification *model.Notification) (bool, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	ListNotifications(ctx context.Context, userID string, opts ListOptions) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}
