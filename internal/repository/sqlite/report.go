package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.ReportRepository = (*DB)(nil)

// CreateReport files a report under a post. A reporter can report a post
// once.
func (db *DB) CreateReport(ctx context.Context, report *model.Report) error {
	report.ID = xid.New().String()
	report.CreatedAt = time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "posts", report.PostID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("post", report.PostID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO reports (id, post_id, reporter_id, reason, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			report.ID, report.PostID, report.ReporterID, report.Reason, report.CreatedAt,
		)
		if isUniqueViolation(err) {
			return &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "you have already reported this post",
			}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: creating report on post %s: %w", report.PostID, err)
	}

	db.publish(live.ReportsTopic(report.PostID))
	return nil
}

// CountReports returns how many reports a post has.
func (db *DB) CountReports(ctx context.Context, postID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE post_id = ?`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reports of post %s: %w", postID, err)
	}
	return n, nil
}

// DeletePostIfReported counts and deletes in one transaction, so two
// reports committed at the same moment cannot both see a count below the
// threshold, and the second of two deletes finds nothing to delete.
func (db *DB) DeletePostIfReported(ctx context.Context, postID string, threshold int) (*model.Post, error) {
	var deleted *model.Post

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var p model.Post
		err := scanPost(tx.QueryRowContext(ctx,
			`SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, postID), &p)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading post: %w", err)
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reports WHERE post_id = ?`, postID,
		).Scan(&count); err != nil {
			return fmt.Errorf("counting reports: %w", err)
		}
		if count < threshold {
			return nil
		}

		ok, err := deletePostTx(ctx, tx, postID)
		if err != nil {
			return err
		}
		if ok {
			deleted = &p
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: enforcing report threshold on post %s: %w", postID, err)
	}

	if deleted != nil {
		db.publish(live.TopicPosts, live.CommentsTopic(postID), live.ReportsTopic(postID))
	}
	return deleted, nil
}
