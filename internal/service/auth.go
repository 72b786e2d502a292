package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/auth"
	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/repository"
)

// AuthService signs users in and issues session tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Users sign up with email and password or with Google. Both paths end in
// the same AuthResult: the stored profile plus a signed session token.
// Emails listed in adminEmails are promoted to admin when they sign in.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	adminEmails []string
	logger      *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	adminEmails []string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		adminEmails: adminEmails,
		logger:      logger,
	}
}

// AuthResult bundles the user record and the issued token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.UserProfile
	Token string
}

// Register creates an email/password account.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}
	displayName, err = requiredText("displayName", displayName, MaxNameLength)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.UserProfile{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         model.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.complete(ctx, user)
}

// Login checks email and password. The error never tells which of the two
// was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, invalid
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}
	if user.PasswordHash == "" {
		// Google-only account
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.complete(ctx, user)
}

// LoginOrRegisterGoogle handles the Google OAuth callback. The account is
// linked to an existing user with the same email, or a new user is created.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, g *auth.GoogleUser) (*AuthResult, error) {
	if g == nil {
		return nil, errors.New("service/auth: Google user must not be nil")
	}

	user := &model.UserProfile{
		Email:       strings.ToLower(strings.TrimSpace(g.Email)),
		GoogleID:    g.Sub,
		DisplayName: g.Name,
		PhotoURL:    identity.SecureURL(g.Picture),
		Role:        model.RoleUser,
	}
	if err := s.users.UpsertGoogleUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (googleID=%s): %w", g.Sub, err)
	}

	s.logger.Info("user authenticated via Google", slog.String("userID", user.ID))
	return s.complete(ctx, user)
}

// ValidateToken returns the session encoded in tokenStr.
func (s *AuthService) ValidateToken(tokenStr string) (identity.Session, error) {
	session, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return identity.Session{}, fmt.Errorf("service/auth: %w", err)
	}
	return session, nil
}

// complete promotes configured admins and issues the token.
func (s *AuthService) complete(ctx context.Context, user *model.UserProfile) (*AuthResult, error) {
	if !user.IsAdmin() && slices.Contains(s.adminEmails, user.Email) {
		if err := s.users.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("service/auth: promoting admin %s: %w", user.ID, err)
		}
		user.Role = model.RoleAdmin
		s.logger.Warn("user promoted to admin", slog.String("userID", user.ID))
	}

	token, err := s.tokens.Generate(SessionOf(user))
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// SessionOf is the session identity of a stored user.
func SessionOf(user *model.UserProfile) identity.Session {
	return identity.Session{
		UID:         user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "a valid email address is required")
	}
	return email, nil
}
