// Package auth issues and checks the session token, hashes passwords and
// talks to Google for sign-in.
//
// SESSION TOKEN:
// A signed-in client carries an HS256 JWT in the HttpOnly "token" cookie.
// Besides the user ID (the "sub" claim) the token carries the email, name
// and picture the user signed in with. Those are the session half of the
// identity merge; the stored profile is the other half.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maeuln/community/internal/identity"
)

const (
	issuer = "maeuln"

	// TokenTTL is how long a session token stays valid.
	TokenTTL = 7 * 24 * time.Hour
)

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and validates session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: TokenTTL}, nil
}

type claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for session valid for TokenTTL.
func (s *TokenService) Generate(session identity.Session) (string, error) {
	return s.GenerateWithDuration(session, s.ttl)
}

// GenerateWithDuration signs a token valid for d. Tests use a negative d to
// produce expired tokens.
func (s *TokenService) GenerateWithDuration(session identity.Session, d time.Duration) (string, error) {
	if session.UID == "" {
		return "", errors.New("auth: session has no user id")
	}

	now := time.Now()
	c := claims{
		Email:   session.Email,
		Name:    session.DisplayName,
		Picture: session.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, issuer and expiry of tokenStr and returns
// the session it carries.
func (s *TokenService) Validate(tokenStr string) (identity.Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Session{}, ErrTokenExpired
		}
		return identity.Session{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return identity.Session{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return identity.Session{}, errors.New("auth: token has no subject")
	}

	return identity.Session{
		UID:         c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
	}, nil
}
