package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maeuln/community/internal/auth"
)

func newGoogleAuthHandler() *AuthHandler {
	google := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost:8080/auth/google/callback")
	return NewAuthHandler(nil, google, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleGoogleLogin_SetsStateAndRedirects(t *testing.T) {
	h := newGoogleAuthHandler()

	rr := httptest.NewRecorder()
	h.HandleGoogleLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)

	location := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://accounts.google.com/"))
	assert.Contains(t, location, "state="+state.Value)
}

func TestHandleGoogleCallback_RejectsBadState(t *testing.T) {
	h := newGoogleAuthHandler()

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=x", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=x", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&error=access_denied", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
		rr := httptest.NewRecorder()
		h.HandleGoogleCallback(rr, req)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
	})
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	h := newGoogleAuthHandler()

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
