package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// CommentService writes and lists comments and dispatches CommentCreated.
type CommentService struct {
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher event.Dispatcher
	logger     *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	users repository.UserRepository,
	dispatcher event.Dispatcher,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{comments: comments, users: users, dispatcher: dispatcher, logger: logger}
}

// Create adds a comment under postID as userID. The comment is stored
// before the event is dispatched; a dispatch failure is logged and does not
// fail the request.
func (s *CommentService) Create(ctx context.Context, userID, postID, content string) (*model.Comment, error) {
	author, err := loadActor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "post ID is required")
	}

	comment := &model.Comment{
		PostID:     postID,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
	}
	if comment.Content, err = requiredText("content", content, MaxCommentLength); err != nil {
		return nil, err
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment: %w", err)
	}

	evt := event.CommentEvent{PostID: postID, CommentID: comment.ID, AuthorID: author.ID}
	if err := s.dispatcher.CommentCreated(ctx, evt); err != nil {
		s.logger.Error("failed to dispatch comment event",
			slog.String("commentID", comment.ID),
			slog.String("error", err.Error()),
		)
	}
	return comment, nil
}

// List returns the comments of postID, oldest first.
func (s *CommentService) List(ctx context.Context, postID string) ([]model.Comment, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "post ID is required")
	}

	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments: %w", err)
	}
	return comments, nil
}
