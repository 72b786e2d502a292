package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maeuln/community/internal/apperror"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorType string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("only admins can manage news"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("post", "p1"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("report", "r1"), http.StatusConflict, "conflict"},
		{"unavailable", apperror.Unavailable("like post", errors.New("disk full")), http.StatusServiceUnavailable, "unavailable"},
		{"wrapped", fmt.Errorf("service/post: %w", apperror.NotFound("post", "p1")), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("sql: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.errorType, resp.Error)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("sqlite: SELECT * FROM users failed"))
	assert.NotContains(t, rr.Body.String(), "SELECT")
}

func TestWriteError_IncludesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("city", "unknown city"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "city", resp.Field)
	assert.Equal(t, "unknown city", resp.Message)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string // empty when decoding succeeds
	}{
		{"valid", `{"email":"a@maeul.test","password":"secret123"}`, ""},
		{"malformed", `{"email":`, "body"},
		{"missing password", `{"email":"a@maeul.test"}`, "password"},
		{"bad email", `{"email":"nope","password":"secret123"}`, "email"},
		{"name too long", `{"email":"a@maeul.test","password":"x","displayName":"` + strings.Repeat("가", 31) + `"}`, "displayName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			var dst registerRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, "a@maeul.test", dst.Email)
				return
			}

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestPageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=20&offset=40", nil)
	limit, offset := pageParams(req)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)

	req = httptest.NewRequest(http.MethodGet, "/api/posts?limit=abc", nil)
	limit, offset = pageParams(req)
	assert.Zero(t, limit)
	assert.Zero(t, offset)
}
