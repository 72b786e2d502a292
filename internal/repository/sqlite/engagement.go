package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.EngagementRepository = (*DB)(nil)

// toggleMember removes the membership row if it exists and inserts it
// otherwise, inside tx. It reports membership after the call.
//
// The DELETE runs first so the "is it there?" check and the change are the
// same statement; there is no read followed by a separate write.
func toggleMember(ctx context.Context, tx *sql.Tx, table, ownerCol, memberCol, owner, member string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s = ?`, table, ownerCol, memberCol),
		owner, member,
	)
	if err != nil {
		return false, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, created_at) VALUES (?, ?, ?)`, table, ownerCol, memberCol),
		owner, member, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// exists reports whether a row with the given id is in table.
func exists(ctx context.Context, tx *sql.Tx, table, id string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, table), id,
	).Scan(&n)
	return n > 0, err
}

// ToggleNewsLike flips newsID in the user's likedNews set. The news item's
// like count is derived from the same rows.
func (db *DB) ToggleNewsLike(ctx context.Context, userID, newsID string) (bool, error) {
	var liked bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "news", newsID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("news", newsID)
		}

		liked, err = toggleMember(ctx, tx, "user_liked_news", "user_id", "news_id", userID, newsID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: toggling news like %s: %w", newsID, err)
	}

	db.publish(live.UserTopic(userID), live.TopicNews)
	return liked, nil
}

// TogglePostLike flips userID in the post's likedBy set.
func (db *DB) TogglePostLike(ctx context.Context, userID, postID string) (bool, error) {
	var liked bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "posts", postID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("post", postID)
		}

		liked, err = toggleMember(ctx, tx, "post_likes", "post_id", "user_id", postID, userID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: toggling post like %s: %w", postID, err)
	}

	db.publish(live.TopicPosts)
	return liked, nil
}

// ToggleFollow flips one follow edge. The follower's following set and the
// followee's followers set are both views of that edge, so they cannot
// disagree.
func (db *DB) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	var following bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{followerID, followeeID} {
			ok, err := exists(ctx, tx, "users", id)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NotFound("user", id)
			}
		}

		var err error
		following, err = toggleMember(ctx, tx, "follows", "follower_id", "followee_id", followerID, followeeID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: toggling follow %s -> %s: %w", followerID, followeeID, err)
	}

	db.publish(live.UserTopic(followerID), live.UserTopic(followeeID))
	return following, nil
}
