// Package event carries the write events that server-side triggers react
// to, and the Dispatcher that hands them over.
//
// Services dispatch after the write committed. Handlers of these events
// must tolerate duplicates: a dispatcher may deliver an event more than once.
package event

import (
	"context"
	"log/slog"
)

// CommentEvent is emitted when a comment was added under a post.
type CommentEvent struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
	AuthorID  string `json:"authorId"`
}

// ReportEvent is emitted when a report was filed under a post.
type ReportEvent struct {
	PostID     string `json:"postId"`
	ReportID   string `json:"reportId"`
	ReporterID string `json:"reporterId"`
}

// Dispatcher delivers events to their triggers.
type Dispatcher interface {
	CommentCreated(ctx context.Context, evt CommentEvent) error
	ReportCreated(ctx context.Context, evt ReportEvent) error
}

// CommentHandler reacts to new comments.
type CommentHandler interface {
	CommentCreated(ctx context.Context, evt CommentEvent) error
}

// ReportHandler reacts to new reports.
type ReportHandler interface {
	ReportCreated(ctx context.Context, evt ReportEvent) error
}

// Inline runs triggers in the dispatching goroutine. It is used when no
// task queue is configured. Trigger failures are logged and not returned:
// the write that caused the event has already succeeded.
type Inline struct {
	comments CommentHandler
	reports  ReportHandler
	logger   *slog.Logger
}

var _ Dispatcher = (*Inline)(nil)

// NewInline creates a Dispatcher that runs the handlers in-process.
func NewInline(comments CommentHandler, reports ReportHandler, logger *slog.Logger) *Inline {
	return &Inline{comments: comments, reports: reports, logger: logger}
}

func (d *Inline) CommentCreated(ctx context.Context, evt CommentEvent) error {
	// detach: the client hanging up must not cancel the trigger
	if err := d.comments.CommentCreated(context.WithoutCancel(ctx), evt); err != nil {
		d.logger.Error("comment trigger failed",
			slog.String("postID", evt.PostID),
			slog.String("commentID", evt.CommentID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (d *Inline) ReportCreated(ctx context.Context, evt ReportEvent) error {
	if err := d.reports.ReportCreated(context.WithoutCancel(ctx), evt); err != nil {
		d.logger.Error("report trigger failed",
			slog.String("postID", evt.PostID),
			slog.String("reportID", evt.ReportID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Discard drops every event. Tests that do not care about triggers use it.
type Discard struct{}

func (Discard) CommentCreated(context.Context, CommentEvent) error { return nil }
func (Discard) ReportCreated(context.Context, ReportEvent) error   { return nil }
