package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// CreateComment adds a comment under its post. The post's comment count is
// derived, so a new comment also changes the posts collection.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "posts", comment.PostID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("post", comment.PostID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO comments (id, post_id, author_id, author_name, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			comment.ID, comment.PostID, comment.AuthorID, comment.AuthorName,
			comment.Content, comment.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %s: %w", comment.PostID, err)
	}

	db.publish(live.CommentsTopic(comment.PostID), live.TopicPosts)
	return nil
}

// ListComments returns a post's comments oldest first, the order a thread
// is read in.
func (db *DB) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, post_id, author_id, author_name, content, created_at
		 FROM comments WHERE post_id = ?
		 ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
