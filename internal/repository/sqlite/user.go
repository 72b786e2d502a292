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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, COALESCE(google_id, ''), display_name, photo_url,
	region, city, town, role, bio, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *model.UserProfile) error {
	return row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.GoogleID, &u.DisplayName, &u.PhotoURL,
		&u.Region, &u.City, &u.Town, &u.Role, &u.Bio, &u.CreatedAt, &u.UpdatedAt,
	)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new profile. The email must not be taken.
func (db *DB) CreateUser(ctx context.Context, user *model.UserProfile) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, google_id, display_name, photo_url,
			region, city, town, role, bio, created_at, updated_at)
		 VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.GoogleID, user.DisplayName, user.PhotoURL,
		user.Region, user.City, user.Town, user.Role, user.Bio, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	db.publish(live.UserTopic(user.ID))
	return nil
}

// GetUserByID returns the profile with its liked-news, following and
// follower sets.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var u model.UserProfile
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	if err := db.loadUserSets(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail is used by password login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u model.UserProfile
	err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	if err := db.loadUserSets(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertGoogleUser finds the user by Google ID, then by email, and creates
// one if neither matches. On an existing user only the Google link is
// written, plus display name and photo where the profile has none: a name
// the user picked in the app wins over the Google account's.
func (db *DB) UpsertGoogleUser(ctx context.Context, user *model.UserProfile) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	var existingID string

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE google_id = ? OR email = ?
			 ORDER BY google_id = ? DESC LIMIT 1`,
			user.GoogleID, email, user.GoogleID,
		).Scan(&existingID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("looking up google user: %w", err)
		}

		now := time.Now().UTC()
		if existingID != "" {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET
					google_id = ?,
					display_name = CASE WHEN display_name = '' THEN ? ELSE display_name END,
					photo_url = CASE WHEN photo_url = '' THEN ? ELSE photo_url END,
					updated_at = ?
				 WHERE id = ?`,
				user.GoogleID, user.DisplayName, user.PhotoURL, now, existingID,
			)
			if err != nil {
				return fmt.Errorf("updating google user %s: %w", existingID, err)
			}
			return nil
		}

		existingID = xid.New().String()
		role := user.Role
		if role == "" {
			role = model.RoleUser
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, email, google_id, display_name, photo_url, role, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			existingID, email, user.GoogleID, user.DisplayName, user.PhotoURL, role, now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting google user: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: upserting google user: %w", err)
	}

	stored, err := db.GetUserByID(ctx, existingID)
	if err != nil {
		return err
	}
	*user = *stored

	db.publish(live.UserTopic(user.ID))
	return nil
}

// UpdateProfile writes the editable profile fields: display name, photo,
// town and bio. Region, city and role have their own methods.
func (db *DB) UpdateProfile(ctx context.Context, user *model.UserProfile) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, photo_url = ?, town = ?, bio = ?, updated_at = ?
		 WHERE id = ?`,
		user.DisplayName, user.PhotoURL, user.Town, user.Bio, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	db.publish(live.UserTopic(user.ID))
	return nil
}

// SetRegion performs the one-time region assignment. The WHERE clause makes
// the "only while unset" rule part of the write itself.
func (db *DB) SetRegion(ctx context.Context, id, region, city, town string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET region = ?, city = ?, town = ?, updated_at = ?
		 WHERE id = ? AND region = '' AND city = ''`,
		region, city, town, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting region for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the user is missing or the region was already set.
		if _, err := db.GetUserByID(ctx, id); err != nil {
			return err
		}
		return &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "region has already been set",
			Field:   "region",
		}
	}

	db.publish(live.UserTopic(id))
	return nil
}

// SetRole changes the user's role.
func (db *DB) SetRole(ctx context.Context, id, role string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting role for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	db.publish(live.UserTopic(id))
	return nil
}

// loadUserSets fills LikedNews, Following and Followers in insertion order.
func (db *DB) loadUserSets(ctx context.Context, u *model.UserProfile) error {
	var err error

	u.LikedNews, err = db.queryIDs(ctx,
		`SELECT news_id FROM user_liked_news WHERE user_id = ? ORDER BY rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading liked news of %s: %w", u.ID, err)
	}

	u.Following, err = db.queryIDs(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading following of %s: %w", u.ID, err)
	}

	u.Followers, err = db.queryIDs(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading followers of %s: %w", u.ID, err)
	}
	return nil
}

// queryIDs runs a single-column query and returns a non-nil slice.
func (db *DB) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
