package handler

import (
	"errors"
	"net/http"

	"github.com/maeuln/community/internal/apperror"
	"github.com/maeuln/community/internal/auth"
	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/scope"
)

// viewerScope resolves the scope listings are filtered by for the caller.
// Signed-out callers get the empty scope. ?city= is honoured for admins.
func viewerScope(r *http.Request, profiles identity.ProfileSource) (scope.Scope, error) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return scope.Resolve(nil, ""), nil
	}

	profile, err := profiles.GetUserByID(r.Context(), session.UID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return scope.Scope{}, err
	}

	var user model.CurrentUser
	if err != nil {
		user = identity.Merge(session, nil)
	} else {
		user = identity.Merge(session, profile)
	}
	return scope.Resolve(&user, r.URL.Query().Get("city")), nil
}
