package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `p.id, p.title, p.content, p.category, p.city, p.author_id, p.author_name,
	p.image_url, p.created_at,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)`

func scanPost(row rowScanner, p *model.Post) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.City, &p.AuthorID, &p.AuthorName,
		&p.ImageURL, &p.CreatedAt, &p.CommentCount,
	)
}

// CreatePost inserts a post. ID and CreatedAt are assigned here.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()
	post.LikedBy = []string{}
	post.CommentCount = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, category, city, author_id, author_name, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Content, post.Category, post.City,
		post.AuthorID, post.AuthorName, post.ImageURL, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	db.publish(live.TopicPosts)
	return nil
}

// GetPost returns one post with its likedBy set.
func (db *DB) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id), &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	posts := []model.Post{p}
	if err := db.loadLikes(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListPosts returns posts newest first, or most liked first with
// filter.ByLikes.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	var (
		where []string
		args  []any
	)
	if filter.City != "" {
		where = append(where, "p.city = ?")
		args = append(args, filter.City)
	}
	if filter.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, filter.Category)
	}
	if len(filter.AuthorIDs) > 0 {
		where = append(where, "p.author_id IN ("+placeholders(len(filter.AuthorIDs))+")")
		for _, id := range filter.AuthorIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + postColumns + ` FROM posts p`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.ByLikes {
		query += ` ORDER BY (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) DESC,`
	} else {
		query += ` ORDER BY`
	}
	query += ` p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	posts := make([]model.Post, 0)
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	// Close before the like query: the in-memory pool has one connection.
	rows.Close()

	if err := db.loadLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadLikes fills LikedBy for every post with one query.
func (db *DB) loadLikes(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	index := make(map[string]int, len(posts))
	args := make([]any, 0, len(posts))
	for i := range posts {
		posts[i].LikedBy = []string{}
		index[posts[i].ID] = i
		args = append(args, posts[i].ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT post_id, user_id FROM post_likes
		 WHERE post_id IN (`+placeholders(len(args))+`)
		 ORDER BY rowid`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading post likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return fmt.Errorf("sqlite: scanning post like: %w", err)
		}
		i := index[postID]
		posts[i].LikedBy = append(posts[i].LikedBy, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating post likes: %w", err)
	}
	return nil
}

// DeletePost removes a post together with everything stored under it.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		deleted, err := deletePostTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return apperror.NotFound("post", id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	db.publish(live.TopicPosts, live.CommentsTopic(id), live.ReportsTopic(id))
	return nil
}

// deletePostTx deletes the post's comments, reports and likes, then the
// post. It reports whether the post existed.
func deletePostTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	for _, table := range []string{"comments", "reports", "post_likes"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE post_id = ?`, table), id,
		); err != nil {
			return false, fmt.Errorf("deleting %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting post row: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}
