package auth

import (
	"context"
	"net/http"

	"github.com/maeuln/community/internal/identity"
)

// CookieName is the cookie the session token travels in.
const CookieName = "token"

type contextKey string

const sessionKey contextKey = "session"

// RequireAuth rejects requests without a valid session token with 401.
// The session is stored in the request context for SessionFromContext.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := extractSession(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// OptionalAuth stores the session when a valid token is present and lets
// every request through.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := extractSession(r, tokens); err == nil {
				r = r.WithContext(WithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session stored by RequireAuth/OptionalAuth.
func SessionFromContext(ctx context.Context) (identity.Session, bool) {
	s, ok := ctx.Value(sessionKey).(identity.Session)
	return s, ok && s.UID != ""
}

// UserIDFromContext returns the signed-in user's ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	return s.UID, ok
}

func extractSession(r *http.Request, tokens *TokenService) (identity.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return identity.Session{}, err
	}
	return tokens.Validate(cookie.Value)
}
