package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maeuln/community/internal/engagement"
	"github.com/maeuln/community/internal/service"
)

// ProfileHandler serves the region directory, the caller's own profile and
// other users' public profiles.
type ProfileHandler struct {
	profiles *service.ProfileService
	mutator  *engagement.Mutator
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, mutator *engagement.Mutator, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, mutator: mutator, logger: logger}
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"max=30"`
	PhotoURL    string `json:"photoURL"    validate:"omitempty,url"`
	Town        string `json:"town"        validate:"max=30"`
	Bio         string `json:"bio"         validate:"max=300"`
}

type setupRegionRequest struct {
	Region string `json:"region" validate:"required"`
	City   string `json:"city"`
	Town   string `json:"town"   validate:"max=30"`
}

// toggleResponse reports the membership state after a toggle.
type toggleResponse struct {
	Active bool `json:"active"`
}

// HandleRegions lists the selectable regions.
//
// HTTP: GET /api/regions
func (h *ProfileHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.profiles.Regions())
}

// HandleCities lists the cities of one region.
//
// HTTP: GET /api/regions/{region}/cities
func (h *ProfileHandler) HandleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.profiles.Cities(chi.URLParam(r, "region"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Get(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe edits the signed-in user's profile.
//
// HTTP: PUT /api/me
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.profiles.Update(r.Context(), currentUserID(r), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Town:        req.Town,
		Bio:         req.Bio,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleSetupRegion assigns the signed-in user's region and city once.
//
// HTTP: POST /api/me/region
func (h *ProfileHandler) HandleSetupRegion(w http.ResponseWriter, r *http.Request) {
	var req setupRegionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.profiles.SetupRegion(r.Context(), currentUserID(r), req.Region, req.City, req.Town)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGetUser returns another user's profile.
//
// HTTP: GET /api/users/{id}
func (h *ProfileHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleFollow toggles following the user in the path.
//
// HTTP: POST /api/users/{id}/follow
func (h *ProfileHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	following, err := h.mutator.ToggleFollow(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Active: following})
}
