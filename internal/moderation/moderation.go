// Package moderation removes posts once enough users reported them.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/storage"
)

// ReportThreshold is the report count at which a post is deleted.
const ReportThreshold = 10

// Store deletes a post once its report count reaches the threshold.
type Store interface {
	DeletePostIfReported(ctx context.Context, postID string, threshold int) (*model.Post, error)
}

// Service deletes posts that reach the report threshold.
type Service struct {
	store     Store
	images    storage.Store
	logger    *slog.Logger
	threshold int
}

var _ event.ReportHandler = (*Service)(nil)

// New creates a Service using the default ReportThreshold.
func New(store Store, images storage.Store, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		images:    images,
		logger:    logger,
		threshold: ReportThreshold,
	}
}

// ReportCreated enforces the threshold for the reported post. A post that
// is already gone is a no-op, so a late report or a redelivered event is
// harmless.
//
// The post's image is released after the post is deleted; failing to
// remove it is logged and does not fail the call.
func (s *Service) ReportCreated(ctx context.Context, evt event.ReportEvent) error {
	deleted, err := s.store.DeletePostIfReported(ctx, evt.PostID, s.threshold)
	if err != nil {
		return fmt.Errorf("moderation: checking reports of post %s: %w", evt.PostID, err)
	}
	if deleted == nil {
		return nil
	}

	s.logger.Warn("post deleted after reports",
		slog.String("postID", deleted.ID),
		slog.String("authorID", deleted.AuthorID),
		slog.Int("threshold", s.threshold),
	)

	if deleted.ImageURL != "" && s.images != nil {
		if err := s.images.Remove(ctx, deleted.ImageURL); err != nil {
			s.logger.Error("moderation: removing image of deleted post",
				slog.String("postID", deleted.ID),
				slog.String("imageURL", deleted.ImageURL),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
