package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maeuln/community/internal/engagement"
	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/service"
)

// NewsHandler serves local news. Only admins create or delete items.
type NewsHandler struct {
	news     *service.NewsService
	mutator  *engagement.Mutator
	profiles identity.ProfileSource
	logger   *slog.Logger
}

func NewNewsHandler(
	news *service.NewsService,
	mutator *engagement.Mutator,
	profiles identity.ProfileSource,
	logger *slog.Logger,
) *NewsHandler {
	return &NewsHandler{news: news, mutator: mutator, profiles: profiles, logger: logger}
}

type createNewsRequest struct {
	Title     string   `json:"title"     validate:"required,max=100"`
	Content   string   `json:"content"   validate:"required"`
	ImageURL  string   `json:"imageUrl"`
	ApplyLink string   `json:"applyLink" validate:"omitempty,http_url"`
	City      string   `json:"city"      validate:"required"`
	Tags      []string `json:"tags"      validate:"max=10"`
}

// HandleList lists the news of the caller's scope, newest first.
//
// HTTP: GET /api/news?city=&limit=&offset=
func (h *NewsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sc, err := viewerScope(r, h.profiles)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := pageParams(r)
	items, err := h.news.List(r.Context(), sc, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreate publishes a news item for one city.
//
// HTTP: POST /api/news
func (h *NewsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNewsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.news.Create(r.Context(), currentUserID(r), service.NewsInput{
		Title:     req.Title,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		ApplyLink: req.ApplyLink,
		City:      req.City,
		Tags:      req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleDelete removes a news item.
//
// HTTP: DELETE /api/news/{id}
func (h *NewsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.news.Delete(r.Context(), currentUserID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLike toggles the news item in the caller's liked set.
//
// HTTP: POST /api/news/{id}/like
func (h *NewsHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := h.mutator.ToggleNewsLike(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Active: liked})
}
