package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maeuln/community/internal/engagement"
	"github.com/maeuln/community/internal/identity"
	"github.com/maeuln/community/internal/model"
	"github.com/maeuln/community/internal/service"
)

// PostHandler serves the community board: posts, their comments, likes
// and reports.
type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	reports  *service.ReportService
	mutator  *engagement.Mutator
	profiles identity.ProfileSource
	logger   *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(
	posts *service.PostService,
	comments *service.CommentService,
	reports *service.ReportService,
	mutator *engagement.Mutator,
	profiles identity.ProfileSource,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		posts:    posts,
		comments: comments,
		reports:  reports,
		mutator:  mutator,
		profiles: profiles,
		logger:   logger,
	}
}

type createPostRequest struct {
	Title    string `json:"title"    validate:"required,max=100"`
	Content  string `json:"content"  validate:"required"`
	Category string `json:"category" validate:"required,max=20"`
	ImageURL string `json:"imageUrl"`
	City     string `json:"city"`
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type createReportRequest struct {
	Reason string `json:"reason"`
}

type followingResponse struct {
	Posts     []model.Post `json:"posts"`
	Truncated bool         `json:"truncated"`
}

// HandleList lists the posts of the caller's scope, newest first.
//
// HTTP: GET /api/posts?category=&city=&limit=&offset=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sc, err := viewerScope(r, h.profiles)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := pageParams(r)
	posts, err := h.posts.List(r.Context(), sc, r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandlePopular returns the most liked posts of the caller's scope.
//
// HTTP: GET /api/posts/popular
func (h *PostHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	sc, err := viewerScope(r, h.profiles)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.Popular(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleFollowing returns recent posts by the users the caller follows.
//
// HTTP: GET /api/posts/following
func (h *PostHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	posts, truncated, err := h.posts.Following(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followingResponse{Posts: posts, Truncated: truncated})
}

// HandleGet returns one post.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate writes a post to the caller's city.
//
// HTTP: POST /api/posts
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), currentUserID(r), service.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		ImageURL: req.ImageURL,
		City:     req.City,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), currentUserID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLike toggles the caller's like on a post.
//
// HTTP: POST /api/posts/{id}/like
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := h.mutator.TogglePostLike(r.Context(), currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Active: liked})
}

// HandleListComments returns a post's comments, oldest first.
//
// HTTP: GET /api/posts/{id}/comments
func (h *PostHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleCreateComment comments on a post.
//
// HTTP: POST /api/posts/{id}/comments
func (h *PostHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), currentUserID(r), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleReport reports a post.
//
// HTTP: POST /api/posts/{id}/reports
func (h *PostHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	// The reason is optional, and so is the body.
	var req createReportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	report, err := h.reports.Create(r.Context(), currentUserID(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
