// Package engagement applies the membership toggles users perform: liking a
// news item, liking a post and following another user.
//
// Every toggle is one atomic store operation. The store removes the member
// when present and adds it otherwise, so two quick taps never lose an
// update. The returned state is informational; the next live snapshot is
// the source of truth for what the client displays.
package engagement

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/maeuln/community/internal/apperror"
)

// Store performs the toggles. Each returns whether the member is now in the
// set.
type Store interface {
	ToggleNewsLike(ctx context.Context, userID, newsID string) (bool, error)
	TogglePostLike(ctx context.Context, userID, postID string) (bool, error)
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
}

// Mutator toggles likes and follows.
type Mutator struct {
	store  Store
	logger *slog.Logger
}

// New creates a Mutator on top of store.
func New(store Store, logger *slog.Logger) *Mutator {
	return &Mutator{store: store, logger: logger}
}

// ToggleNewsLike flips newsID in the user's liked-news set and reports
// whether the news item is now liked.
func (m *Mutator) ToggleNewsLike(ctx context.Context, userID, newsID string) (bool, error) {
	if err := requireIDs(userID, "newsId", newsID); err != nil {
		return false, err
	}

	liked, err := m.store.ToggleNewsLike(ctx, userID, newsID)
	if err != nil {
		return false, m.fail("like news", err, slog.String("newsID", newsID), slog.String("userID", userID))
	}
	return liked, nil
}

// TogglePostLike flips userID in the post's likedBy set.
func (m *Mutator) TogglePostLike(ctx context.Context, userID, postID string) (bool, error) {
	if err := requireIDs(userID, "postId", postID); err != nil {
		return false, err
	}

	liked, err := m.store.TogglePostLike(ctx, userID, postID)
	if err != nil {
		return false, m.fail("like post", err, slog.String("postID", postID), slog.String("userID", userID))
	}
	return liked, nil
}

// ToggleFollow flips the follow relation from userID to targetID. The
// follower's following set and the target's followers set change together.
func (m *Mutator) ToggleFollow(ctx context.Context, userID, targetID string) (bool, error) {
	if err := requireIDs(userID, "targetId", targetID); err != nil {
		return false, err
	}
	if userID == targetID {
		return false, apperror.ValidationFailed("targetId", "you cannot follow yourself")
	}

	following, err := m.store.ToggleFollow(ctx, userID, targetID)
	if err != nil {
		return false, m.fail("follow user", err, slog.String("targetID", targetID), slog.String("userID", userID))
	}
	return following, nil
}

func requireIDs(userID, field, id string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized("sign in required")
	}
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	return nil
}

// fail keeps NotFound as is and turns anything else into a generic failure.
func (m *Mutator) fail(action string, err error, attrs ...any) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	m.logger.Error("engagement: "+action+" failed", append(attrs, slog.String("error", err.Error()))...)
	return apperror.Unavailable(action, err)
}
