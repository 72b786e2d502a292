// Package service contains the business rules of the community backend.
//
// THE LAYERS:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, checks permissions, orchestrates
//	Repository (Data layer)  → reads/writes the store
//
// Services take repository interfaces, not *sqlite.DB, so tests pass
// in-memory fakes. They return apperror values; the handler decides the
// HTTP status.
//
// PERMISSIONS:
// The acting user is always passed as an ID taken from the session. When a
// rule depends on the user's role or city, the service loads the profile
// itself instead of trusting anything the client sent.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// List limits shared by every listing endpoint.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Field limits, in characters.
const (
	MaxTitleLength    = 100
	MaxContentLength  = 5000
	MaxCommentLength  = 1000
	MaxReasonLength   = 500
	MaxCategoryLength = 20
	MaxNameLength     = 30
	MaxBioLength      = 300
	MaxTagCount       = 10
)

// clampList applies the default and maximum page size.
func clampList(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// requiredText trims s and checks it is present and at most max characters.
func requiredText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return optionalText(field, s, max)
}

// optionalText trims s and checks it is at most max characters.
func optionalText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return s, nil
}

// requireUser rejects an empty acting user.
func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized("sign in required")
	}
	return nil
}

// profileLoader is the part of the user repository services use to load
// the acting user.
type profileLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// loadActor returns the acting user's profile. A session whose user record
// is gone is treated as signed out.
func loadActor(ctx context.Context, users profileLoader, userID string) (*model.UserProfile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	u, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("sign in required")
		}
		return nil, fmt.Errorf("service: loading user %s: %w", userID, err)
	}
	return u, nil
}
