// Package trigger writes the notifications the server creates on its own:
// "new comment on your post" and "your event starts within the hour".
//
// Each reaction is stateless and safe to run more than once for the same
// input. Clients never write notifications.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
)

// ReminderWindow is how far ahead RemindUpcoming looks.
const ReminderWindow = time.Hour

// Client route targets of notification links.
const (
	CalendarLink = "/calendar"
)

// PostLink is the client route of a post.
func PostLink(postID string) string { return "/post/" + postID }

// CommentMessage is the notification text for a new comment.
func CommentMessage(postTitle string) string {
	return fmt.Sprintf("내 게시글 '%s'에 새 댓글이 달렸습니다.", postTitle)
}

// ReminderMessage is the notification text for an upcoming event.
func ReminderMessage(eventTitle string) string {
	return fmt.Sprintf("'%s' 일정이 1시간 이내에 시작됩니다.", eventTitle)
}

// Store is what the triggers read and write.
type Store interface {
	GetPost(ctx context.Context, id string) (*model.Post, error)
	CreateNotification(ctx context.Context, notification *model.Notification) error
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
	CreateReminder(ctx context.Context, event model.CalendarEvent, notification *model.Notification) (bool, error)
}

// Service runs the notification triggers.
type Service struct {
	store  Store
	logger *slog.Logger
}

var _ event.CommentHandler = (*Service)(nil)

// New creates a Service writing notifications to store.
func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CommentCreated notifies the post's author about a comment by someone else.
// A post that is already gone is a no-op.
func (s *Service) CommentCreated(ctx context.Context, evt event.CommentEvent) error {
	post, err := s.store.GetPost(ctx, evt.PostID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("comment trigger: post no longer exists",
				slog.String("postID", evt.PostID),
			)
			return nil
		}
		return fmt.Errorf("trigger: loading post %s: %w", evt.PostID, err)
	}

	if post.AuthorID == evt.AuthorID {
		return nil
	}

	notification := &model.Notification{
		UserID:  post.AuthorID,
		Content: CommentMessage(post.Title),
		Link:    PostLink(post.ID),
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("trigger: notifying author of post %s: %w", post.ID, err)
	}

	s.logger.Info("comment notification sent",
		slog.String("postID", post.ID),
		slog.String("userID", post.AuthorID),
	)
	return nil
}

// RemindUpcoming notifies owners of user events starting in
// [now, now+ReminderWindow]. An event is reminded at most once: the
// reminded mark and the notification are written together.
//
// It returns how many reminders were sent. A failure on one event does not
// stop the others; the failures are returned joined.
func (s *Service) RemindUpcoming(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDueReminders(ctx, now, now.Add(ReminderWindow))
	if err != nil {
		return 0, fmt.Errorf("trigger: listing due reminders: %w", err)
	}

	var (
		sent int
		errs []error
	)
	for _, e := range due {
		owner, err := OwnerFromPath(e.Path())
		if err != nil {
			s.logger.Warn("reminder: skipping event", slog.String("error", err.Error()))
			continue
		}

		notification := &model.Notification{
			UserID:  owner,
			Content: ReminderMessage(e.Title),
			Link:    CalendarLink,
		}
		claimed, err := s.store.CreateReminder(ctx, e, notification)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", e.ID, err))
			continue
		}
		if claimed {
			sent++
		}
	}

	if sent > 0 || len(errs) > 0 {
		s.logger.Info("reminders processed",
			slog.Int("due", len(due)),
			slog.Int("sent", sent),
			slog.Int("failed", len(errs)),
		)
	}
	if len(errs) > 0 {
		return sent, fmt.Errorf("trigger: sending reminders: %w", errors.Join(errs...))
	}
	return sent, nil
}

// OwnerFromPath returns {uid} from an event path "users/{uid}/events/{id}".
func OwnerFromPath(path string) (string, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "users" || parts[2] != "events" || parts[1] == "" || parts[3] == "" {
		return "", fmt.Errorf("trigger: %q is not an event path", path)
	}
	return parts[1], nil
}
