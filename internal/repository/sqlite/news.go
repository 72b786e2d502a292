package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

var _ repository.NewsRepository = (*DB)(nil)

const newsColumns = `n.id, n.title, n.content, n.image_url, n.apply_link, n.city, n.tags, n.created_at,
	(SELECT COUNT(*) FROM user_liked_news l WHERE l.news_id = n.id)`

func scanNews(row rowScanner, n *model.NewsItem) error {
	var tags string
	if err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.ImageURL, &n.ApplyLink, &n.City, &tags,
		&n.CreatedAt, &n.LikeCount,
	); err != nil {
		return err
	}

	n.Tags = []string{}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return fmt.Errorf("decoding tags of news %s: %w", n.ID, err)
	}
	return nil
}

// CreateNews inserts a news item.
func (db *DB) CreateNews(ctx context.Context, news *model.NewsItem) error {
	news.ID = xid.New().String()
	news.CreatedAt = time.Now().UTC()
	news.LikeCount = 0
	if news.Tags == nil {
		news.Tags = []string{}
	}

	tags, err := json.Marshal(news.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding news tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO news (id, title, content, image_url, apply_link, city, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		news.ID, news.Title, news.Content, news.ImageURL, news.ApplyLink, news.City,
		string(tags), news.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating news: %w", err)
	}

	db.publish(live.TopicNews)
	return nil
}

// GetNews returns one news item.
func (db *DB) GetNews(ctx context.Context, id string) (*model.NewsItem, error) {
	var n model.NewsItem
	err := scanNews(db.conn.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news n WHERE n.id = ?`, id), &n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("news", id)
		}
		return nil, fmt.Errorf("sqlite: getting news %s: %w", id, err)
	}
	return &n, nil
}

// ListNews returns news newest first, filtered by city when one is given.
func (db *DB) ListNews(ctx context.Context, filter repository.NewsFilter) ([]model.NewsItem, error) {
	query := `SELECT ` + newsColumns + ` FROM news n`
	var args []any
	if filter.City != "" {
		query += ` WHERE n.city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing news: %w", err)
	}
	defer rows.Close()

	items := make([]model.NewsItem, 0)
	for rows.Next() {
		var n model.NewsItem
		if err := scanNews(rows, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning news row: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating news: %w", err)
	}
	return items, nil
}

// DeleteNews removes a news item. Likes go with it (ON DELETE CASCADE), so
// every user's likedNews set changes too.
func (db *DB) DeleteNews(ctx context.Context, id string) error {
	likers, err := db.queryIDs(ctx, `SELECT user_id FROM user_liked_news WHERE news_id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: loading likers of news %s: %w", id, err)
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting news %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("news", id)
	}

	topics := []string{live.TopicNews}
	for _, uid := range likers {
		topics = append(topics, live.UserTopic(uid))
	}
	db.publish(topics...)
	return nil
}
